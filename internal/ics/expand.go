package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"calstatus/internal/errs"
	appLog "calstatus/internal/log"
	"calstatus/internal/model"
)

// UntilGrace is how far in the past a rule's UNTIL may lie and still be
// expanded. Invocations fire roughly every 30 minutes and clocks drift.
const UntilGrace = 5 * time.Minute

// LastOccurrenceEndAtOrBefore finds the latest occurrence of spec starting
// at or before reference and returns its end if reference falls inside
// [occurrence start, occurrence end). Occurrences keep the duration of the
// originalStart/originalEnd pair.
//
// Occurrences are generated in the location of the series start, so BYDAY
// and the local wall-clock time hold across UTC date lines and DST changes.
// The expansion window is bounded by the end of the reference's day in that
// location, so unbounded series never generate more than one day ahead.
func LastOccurrenceEndAtOrBefore(spec model.RecurrenceSpec, originalStart, originalEnd, reference time.Time) (time.Time, bool) {
	if spec.Until != nil && !spec.Until.IsZero() && spec.Until.Before(reference.Add(-UntilGrace)) {
		return time.Time{}, false
	}

	set, err := buildSet(spec, reference)
	if err != nil {
		appLog.Error("expand: cannot build rule", errs.Resolution("expand", err),
			"frequency_code", spec.FrequencyCode,
		)
		return time.Time{}, false
	}

	lastStart := set.Before(reference, true)
	if lastStart.IsZero() {
		return time.Time{}, false
	}

	end := lastStart.Add(originalEnd.Sub(originalStart))
	if reference.Before(lastStart) || !reference.Before(end) {
		return time.Time{}, false
	}
	return end, true
}

func buildSet(spec model.RecurrenceSpec, reference time.Time) (*rrule.Set, error) {
	freq, ok := model.Frequency(spec.FrequencyCode)
	if !ok {
		return nil, fmt.Errorf("unknown frequency code %d", spec.FrequencyCode)
	}
	if spec.Start.IsZero() {
		return nil, errors.New("missing series start")
	}

	opt := spec.Options
	opt.Freq = freq
	loc := spec.Start.Location()
	opt.Dtstart = spec.Start
	opt.Until = endOfDay(reference, loc)
	if spec.Until != nil && !spec.Until.IsZero() && spec.Until.Before(opt.Until) {
		opt.Until = spec.Until.In(loc)
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, err
	}

	set := &rrule.Set{}
	set.RRule(r)
	for _, ex := range spec.ExDates {
		set.ExDate(ex.In(loc))
	}
	return set, nil
}

// endOfDay returns the last second of t's calendar day in loc.
func endOfDay(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 23, 59, 59, 0, loc)
}
