package resolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calstatus/internal/model"
)

var now = time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	f, err := NewFilter(me, []string{"org chart"})
	require.NoError(t, err)
	return NewResolver(f)
}

func single(id string, start, end time.Time) model.Event {
	return model.Event{ID: id, UID: id, Summary: id, Start: start, End: end}
}

func TestResolveCurrentSingleEvent(t *testing.T) {
	ev := single("sync", now.Add(-10*time.Minute), now.Add(20*time.Minute))

	got := newResolver(t).ResolveCurrent(model.Snapshot{ev}, now)
	require.NotNil(t, got)
	assert.Equal(t, "sync", got.Event.ID)
	assert.True(t, got.EffectiveEnd.Equal(ev.End))
}

func TestResolveCurrentFirstMatchWins(t *testing.T) {
	a := single("a", now.Add(-time.Hour), now.Add(time.Hour))
	b := single("b", now.Add(-5*time.Minute), now.Add(5*time.Minute))

	r := newResolver(t)

	got := r.ResolveCurrent(model.Snapshot{a, b}, now)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.Event.ID)

	got = r.ResolveCurrent(model.Snapshot{b, a}, now)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.Event.ID)
}

func TestResolveCurrentSkipsIneligible(t *testing.T) {
	declined := single("declined", now.Add(-time.Hour), now.Add(time.Hour))
	declined.Attendees = []model.Attendee{{DisplayName: me, Status: model.StatusDeclined}}

	bot := single("bot", now.Add(-time.Hour), now.Add(time.Hour))
	bot.Organizer = &model.Organizer{DisplayName: "Org Chart"}

	free := single("free", now.Add(-time.Hour), now.Add(time.Hour))
	free.Transparency = model.Transparent

	r := newResolver(t)
	assert.Nil(t, r.ResolveCurrent(model.Snapshot{declined, bot, free}, now))

	ok := single("ok", now.Add(-time.Minute), now.Add(time.Minute))
	got := r.ResolveCurrent(model.Snapshot{declined, bot, free, ok}, now)
	require.NotNil(t, got)
	assert.Equal(t, "ok", got.Event.ID)
}

func TestResolveCurrentSingleEventBoundsAreExclusive(t *testing.T) {
	r := newResolver(t)

	startsNow := single("starts", now, now.Add(time.Hour))
	assert.Nil(t, r.ResolveCurrent(model.Snapshot{startsNow}, now))

	endsNow := single("ends", now.Add(-time.Hour), now)
	assert.Nil(t, r.ResolveCurrent(model.Snapshot{endsNow}, now))
}

func TestResolveCurrentRecurring(t *testing.T) {
	start := now.AddDate(0, 0, -1).Add(-10 * time.Minute)
	ev := single("standup", start, start.Add(30*time.Minute))
	ev.Recurrence = &model.RecurrenceSpec{FrequencyCode: 3, Start: start}

	got := newResolver(t).ResolveCurrent(model.Snapshot{ev}, now)
	require.NotNil(t, got)
	assert.True(t, got.EffectiveEnd.Equal(now.Add(20*time.Minute)))
}

func TestResolveCurrentRecurringIneligibleNeverExpanded(t *testing.T) {
	start := now.AddDate(0, 0, -1).Add(-10 * time.Minute)
	ev := single("standup", start, start.Add(30*time.Minute))
	ev.Recurrence = &model.RecurrenceSpec{FrequencyCode: 3, Start: start}
	ev.Attendees = []model.Attendee{{Email: me, Status: model.StatusDeclined}}

	assert.Nil(t, newResolver(t).ResolveCurrent(model.Snapshot{ev}, now))
}

func TestResolveCurrentSkipsMalformed(t *testing.T) {
	noEnd := model.Event{ID: "no-end", Start: now.Add(-time.Hour)}
	backwards := single("backwards", now.Add(time.Hour), now.Add(-time.Hour))
	ok := single("ok", now.Add(-time.Minute), now.Add(time.Minute))

	got := newResolver(t).ResolveCurrent(model.Snapshot{noEnd, backwards, ok}, now)
	require.NotNil(t, got)
	assert.Equal(t, "ok", got.Event.ID)
}

func TestResolveCurrentEmptySnapshot(t *testing.T) {
	assert.Nil(t, newResolver(t).ResolveCurrent(nil, now))
}
