package model

import (
	"time"

	"github.com/teambition/rrule-go"
)

// ParticipationStatus is an attendee's PARTSTAT.
type ParticipationStatus string

const (
	StatusAccepted    ParticipationStatus = "ACCEPTED"
	StatusDeclined    ParticipationStatus = "DECLINED"
	StatusTentative   ParticipationStatus = "TENTATIVE"
	StatusNeedsAction ParticipationStatus = "NEEDS-ACTION"
)

// Transparency is the event's TRANSP value. The zero value means OPAQUE.
type Transparency string

const (
	Opaque      Transparency = "OPAQUE"
	Transparent Transparency = "TRANSPARENT"
)

// Attendee is one ATTENDEE line of an event.
type Attendee struct {
	DisplayName string // CN parameter
	Email       string // mailto: value without the scheme
	Status      ParticipationStatus
}

// Organizer is the ORGANIZER of an event.
type Organizer struct {
	DisplayName string
	Email       string
}

// Event is a single VEVENT as delivered by the feed, before recurrence
// expansion.
type Event struct {
	// ID identifies the entry within one snapshot: the UID, suffixed with
	// the RECURRENCE-ID for overridden instances.
	ID  string
	UID string

	Summary     string
	Description string

	Start time.Time
	End   time.Time

	Organizer    *Organizer
	Attendees    []Attendee
	Transparency Transparency
	// Status is the VEVENT STATUS (CONFIRMED, TENTATIVE, CANCELLED), if any.
	Status string

	Recurrence *RecurrenceSpec
}

// IsTransparent reports whether the event is marked as free time.
func (e Event) IsTransparent() bool {
	return e.Transparency == Transparent
}

// Snapshot is one fetched copy of the calendar. Order is the feed order and
// is what first-match-wins resolution iterates over.
type Snapshot []Event

// RecurrenceSpec is a parsed RRULE plus the exception dates that apply to it.
type RecurrenceSpec struct {
	// FrequencyCode indexes Frequencies.
	FrequencyCode int

	// Start is the DTSTART of the series.
	Start time.Time
	// Until is nil for unbounded series.
	Until *time.Time

	// Options carries the remaining rule parts (interval, BYxxx, count,
	// week start) as understood by rrule-go. Freq, Dtstart and Until are
	// filled from the fields above at expansion time.
	Options rrule.ROption

	// ExDates lists occurrence starts that must not be produced: EXDATE
	// values and RECURRENCE-IDs of overridden instances.
	ExDates []time.Time
}

// frequencies maps RecurrenceSpec.FrequencyCode to a rule frequency.
var frequencies = [...]rrule.Frequency{
	rrule.YEARLY,
	rrule.MONTHLY,
	rrule.WEEKLY,
	rrule.DAILY,
	rrule.HOURLY,
	rrule.MINUTELY,
	rrule.SECONDLY,
}

// Frequency returns the rule frequency for code.
func Frequency(code int) (rrule.Frequency, bool) {
	if code < 0 || code >= len(frequencies) {
		return 0, false
	}
	return frequencies[code], true
}

// FrequencyCode is the inverse of Frequency.
func FrequencyCode(f rrule.Frequency) (int, bool) {
	for i, v := range frequencies {
		if v == f {
			return i, true
		}
	}
	return 0, false
}

// ResolvedEvent is the event governing "now" together with the end instant
// used for expiration.
type ResolvedEvent struct {
	Event        Event
	EffectiveEnd time.Time
}

// Status is what gets published to the presence service. A nil *Status
// means "clear the status".
type Status struct {
	Text       string
	Emoji      string
	Expiration int64 // epoch seconds
}
