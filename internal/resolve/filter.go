package resolve

import (
	"fmt"
	"regexp"
	"strings"

	"calstatus/internal/model"
)

// Filter decides whether an event counts as "busy" for one user.
type Filter struct {
	user     string
	excluded []*regexp.Regexp
}

// NewFilter builds a Filter for user. excludedOrganizers are regular
// expressions matched case-insensitively against the organizer's display
// name and email; an empty entry is ignored.
func NewFilter(user string, excludedOrganizers []string) (*Filter, error) {
	f := &Filter{user: strings.TrimSpace(user)}
	for _, pat := range excludedOrganizers {
		pat = strings.TrimSpace(pat)
		if pat == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			return nil, fmt.Errorf("exclude organizer pattern %q: %w", pat, err)
		}
		f.excluded = append(f.excluded, re)
	}
	return f, nil
}

// IsEligible applies, in order: the user's own acceptance, the organizer
// exclusion list, transparency, and cancellation.
//
// When the event has attendees but the user is not among them, the event
// is eligible: events shared onto the calendar without an invitation for
// the user still mark the user busy.
func (f *Filter) IsEligible(ev model.Event) bool {
	if self, ok := f.findSelf(ev.Attendees); ok && self.Status != model.StatusAccepted {
		return false
	}
	if f.excludedOrganizer(ev.Organizer) {
		return false
	}
	if ev.IsTransparent() {
		return false
	}
	if ev.Status == "CANCELLED" {
		return false
	}
	return true
}

func (f *Filter) findSelf(attendees []model.Attendee) (model.Attendee, bool) {
	if f.user == "" {
		return model.Attendee{}, false
	}
	for _, a := range attendees {
		if strings.EqualFold(strings.TrimSpace(a.DisplayName), f.user) ||
			strings.EqualFold(strings.TrimSpace(a.Email), f.user) {
			return a, true
		}
	}
	return model.Attendee{}, false
}

func (f *Filter) excludedOrganizer(org *model.Organizer) bool {
	if org == nil {
		return false
	}
	for _, re := range f.excluded {
		if (org.DisplayName != "" && re.MatchString(org.DisplayName)) ||
			(org.Email != "" && re.MatchString(org.Email)) {
			return true
		}
	}
	return false
}
