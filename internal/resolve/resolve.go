// Package resolve picks the calendar event that governs the user's status
// at a given instant.
package resolve

import (
	"errors"
	"time"

	"calstatus/internal/errs"
	"calstatus/internal/ics"
	appLog "calstatus/internal/log"
	"calstatus/internal/model"
)

// Resolver scans a snapshot for the event the user is in right now.
type Resolver struct {
	filter *Filter
}

// NewResolver returns a Resolver using filter for eligibility.
func NewResolver(filter *Filter) *Resolver {
	return &Resolver{filter: filter}
}

// ResolveCurrent returns the first event in snapshot order that is eligible
// and in progress at reference, or nil.
//
// A single event is in progress when start < reference < end. A recurring
// event is in progress when the reference falls inside its latest
// occurrence (start inclusive, end exclusive). Malformed events are logged
// and skipped.
func (r *Resolver) ResolveCurrent(snap model.Snapshot, reference time.Time) *model.ResolvedEvent {
	for _, ev := range snap {
		if err := validate(ev); err != nil {
			appLog.Error("resolve: skipping malformed event", err, "id", ev.ID, "summary", ev.Summary)
			continue
		}

		if !r.filter.IsEligible(ev) {
			appLog.Debug("resolve: event not eligible", "id", ev.ID, "summary", ev.Summary)
			continue
		}

		if ev.Start.Before(reference) && reference.Before(ev.End) {
			return &model.ResolvedEvent{Event: ev, EffectiveEnd: ev.End}
		}

		if ev.Recurrence == nil {
			continue
		}
		if end, ok := ics.LastOccurrenceEndAtOrBefore(*ev.Recurrence, ev.Start, ev.End, reference); ok {
			return &model.ResolvedEvent{Event: ev, EffectiveEnd: end}
		}
	}
	return nil
}

func validate(ev model.Event) error {
	switch {
	case ev.Start.IsZero():
		return errs.Resolution("validate", errors.New("missing start"))
	case ev.End.IsZero():
		return errs.Resolution("validate", errors.New("missing end"))
	case ev.End.Before(ev.Start):
		return errs.Resolution("validate", errors.New("end before start"))
	}
	return nil
}
