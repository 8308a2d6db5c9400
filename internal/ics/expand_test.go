package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"

	"calstatus/internal/model"
)

var reference = time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC)

// dailySeries starts yesterday ten minutes before reference and lasts 30m.
func dailySeries() (model.RecurrenceSpec, time.Time, time.Time) {
	start := reference.AddDate(0, 0, -1).Add(-10 * time.Minute)
	end := start.Add(30 * time.Minute)
	return model.RecurrenceSpec{FrequencyCode: 3, Start: start}, start, end
}

func TestLastOccurrenceDailyInProgress(t *testing.T) {
	spec, start, end := dailySeries()

	got, ok := LastOccurrenceEndAtOrBefore(spec, start, end, reference)
	require.True(t, ok)
	assert.True(t, got.Equal(reference.Add(20*time.Minute)), "got %s", got)
}

func TestLastOccurrenceIsIdempotent(t *testing.T) {
	spec, start, end := dailySeries()

	first, ok1 := LastOccurrenceEndAtOrBefore(spec, start, end, reference)
	second, ok2 := LastOccurrenceEndAtOrBefore(spec, start, end, reference)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.True(t, first.Equal(second))
}

func TestLastOccurrenceBoundaries(t *testing.T) {
	spec, start, end := dailySeries()
	occStart := reference.Add(-10 * time.Minute)
	occEnd := reference.Add(20 * time.Minute)

	got, ok := LastOccurrenceEndAtOrBefore(spec, start, end, occStart)
	require.True(t, ok, "start is inclusive")
	assert.True(t, got.Equal(occEnd))

	_, ok = LastOccurrenceEndAtOrBefore(spec, start, end, occEnd)
	assert.False(t, ok, "end is exclusive")

	_, ok = LastOccurrenceEndAtOrBefore(spec, start, end, occEnd.Add(time.Hour))
	assert.False(t, ok)
}

func TestLastOccurrenceFirstOccurrenceInFuture(t *testing.T) {
	start := reference.Add(2 * time.Hour)
	spec := model.RecurrenceSpec{FrequencyCode: 3, Start: start}

	_, ok := LastOccurrenceEndAtOrBefore(spec, start, start.Add(time.Hour), reference)
	assert.False(t, ok)
}

func TestLastOccurrenceUntil(t *testing.T) {
	spec, start, end := dailySeries()

	past := reference.Add(-time.Hour)
	spec.Until = &past
	_, ok := LastOccurrenceEndAtOrBefore(spec, start, end, reference)
	assert.False(t, ok, "until well before reference skips expansion")

	// Inside the grace window, and after today's occurrence started.
	recent := reference.Add(-3 * time.Minute)
	spec.Until = &recent
	got, ok := LastOccurrenceEndAtOrBefore(spec, start, end, reference)
	require.True(t, ok)
	assert.True(t, got.Equal(reference.Add(20*time.Minute)))

	future := reference.AddDate(0, 1, 0)
	spec.Until = &future
	_, ok = LastOccurrenceEndAtOrBefore(spec, start, end, reference)
	assert.True(t, ok)
}

func TestLastOccurrenceSkipsExDates(t *testing.T) {
	spec, start, end := dailySeries()
	spec.ExDates = []time.Time{reference.Add(-10 * time.Minute)}

	_, ok := LastOccurrenceEndAtOrBefore(spec, start, end, reference)
	assert.False(t, ok)
}

func TestLastOccurrenceWeeklyOtherDay(t *testing.T) {
	// Weekly on the series start's weekday, which is not today.
	start := reference.AddDate(0, 0, -8).Add(-10 * time.Minute)
	spec := model.RecurrenceSpec{FrequencyCode: 2, Start: start}

	_, ok := LastOccurrenceEndAtOrBefore(spec, start, start.Add(30*time.Minute), reference)
	assert.False(t, ok)

	start = reference.AddDate(0, 0, -14).Add(-10 * time.Minute)
	spec.Start = start
	got, ok := LastOccurrenceEndAtOrBefore(spec, start, start.Add(30*time.Minute), reference)
	require.True(t, ok)
	assert.True(t, got.Equal(reference.Add(20*time.Minute)))
}

func TestLastOccurrenceUnknownFrequency(t *testing.T) {
	spec, start, end := dailySeries()
	spec.FrequencyCode = 9

	_, ok := LastOccurrenceEndAtOrBefore(spec, start, end, reference)
	assert.False(t, ok)
}

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestLastOccurrenceWeeklyByDayKeepsLocalWeekday(t *testing.T) {
	la := mustLoad(t, "America/Los_Angeles")
	// Monday 18:00 local is Tuesday 01:00 UTC.
	start := time.Date(2026, 9, 7, 18, 0, 0, 0, la)
	end := start.Add(30 * time.Minute)
	spec := model.RecurrenceSpec{
		FrequencyCode: 2,
		Start:         start,
		Options:       rrule.ROption{Byweekday: []rrule.Weekday{rrule.MO}},
	}

	got, ok := LastOccurrenceEndAtOrBefore(spec, start, end, time.Date(2026, 10, 12, 18, 10, 0, 0, la))
	require.True(t, ok, "monday occurrence")
	assert.True(t, got.Equal(time.Date(2026, 10, 12, 18, 30, 0, 0, la)), "got %s", got)

	_, ok = LastOccurrenceEndAtOrBefore(spec, start, end, time.Date(2026, 10, 11, 18, 10, 0, 0, la))
	assert.False(t, ok, "sunday has no occurrence")
}

func TestLastOccurrenceDailyAcrossDST(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	// Starts under EDT; DST ends 2026-11-01.
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, ny)
	end := start.Add(30 * time.Minute)
	spec := model.RecurrenceSpec{FrequencyCode: 3, Start: start}

	got, ok := LastOccurrenceEndAtOrBefore(spec, start, end, time.Date(2026, 11, 16, 9, 10, 0, 0, ny))
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2026, 11, 16, 9, 30, 0, 0, ny)), "got %s", got)

	_, ok = LastOccurrenceEndAtOrBefore(spec, start, end, time.Date(2026, 11, 16, 8, 10, 0, 0, ny))
	assert.False(t, ok, "the UTC-anchored hour is not an occurrence")
}
