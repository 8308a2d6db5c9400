package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "calstatus/internal/log"
	"calstatus/internal/model"
)

// ruleParts lists the RRULE keys rrule-go accepts. Anything else (vendor
// X- extensions and the like) is dropped before parsing, since the parser
// rejects unknown keys outright.
var ruleParts = map[string]bool{
	"FREQ":       true,
	"INTERVAL":   true,
	"WKST":       true,
	"COUNT":      true,
	"UNTIL":      true,
	"BYSETPOS":   true,
	"BYMONTH":    true,
	"BYMONTHDAY": true,
	"BYYEARDAY":  true,
	"BYWEEKNO":   true,
	"BYDAY":      true,
	"BYHOUR":     true,
	"BYMINUTE":   true,
	"BYSECOND":   true,
	"BYEASTER":   true,
}

// ParseSnapshot parses an ICS payload into an ordered snapshot.
//
//   - Events keep feed order.
//   - A VEVENT that cannot be read (no UID) is logged and skipped.
//   - RECURRENCE-ID overrides stay in the snapshot as standalone events and
//     their original slot is added to the base series' exception dates, so
//     a moved instance is not reported at its old time.
func ParseSnapshot(feedURL string, body []byte) (model.Snapshot, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if err := validateICalFormat(body); err != nil {
		return nil, err
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	snap := make(model.Snapshot, 0)
	overrides := make(map[string][]time.Time)

	for _, comp := range cal.Events() {
		ev, rid, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "url", redactURL(feedURL))
			continue
		}
		if rid != nil {
			overrides[ev.UID] = append(overrides[ev.UID], *rid)
		}
		snap = append(snap, ev)
	}

	for i := range snap {
		rec := snap[i].Recurrence
		if rec == nil {
			continue
		}
		rec.ExDates = append(rec.ExDates, overrides[snap[i].UID]...)
	}

	appLog.Info("ics parse completed", "url", redactURL(feedURL), "event_count", len(snap))
	return snap, nil
}

// validateICalFormat rejects bodies that are clearly not a calendar, such as
// the HTML login page served for a revoked private address.
func validateICalFormat(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	upper := bytes.ToUpper(trimmed[:min(len(trimmed), 64)])
	if bytes.HasPrefix(upper, []byte("<!DOCTYPE")) || bytes.HasPrefix(upper, []byte("<HTML")) {
		return errors.New("received HTML instead of iCalendar data")
	}
	if !bytes.HasPrefix(upper, []byte("BEGIN:VCALENDAR")) {
		return errors.New("invalid iCalendar format: expected BEGIN:VCALENDAR")
	}
	return nil
}

func parseVEvent(ve *ical.VEvent) (model.Event, *time.Time, error) {
	var out model.Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, nil, errors.New("missing UID")
	}
	out.UID = uidProp.Value
	out.ID = out.UID

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		out.Status = strings.ToUpper(strings.TrimSpace(p.Value))
	}

	out.Transparency = model.Opaque
	if p := ve.GetProperty(ical.ComponentPropertyTransp); p != nil {
		if strings.EqualFold(strings.TrimSpace(p.Value), string(model.Transparent)) {
			out.Transparency = model.Transparent
		}
	}

	// Missing DTSTART/DTEND leave zero times; the resolver treats those as
	// malformed.
	start, _ := ve.GetStartAt()
	end, _ := ve.GetEndAt()
	out.Start = start
	out.End = end

	if end.IsZero() && !start.IsZero() && isDateOnly(ve.GetProperty(ical.ComponentPropertyDtStart)) {
		// A date-only DTSTART without DTEND spans one day.
		out.End = start.AddDate(0, 0, 1)
	}

	if p := ve.GetProperty(ical.ComponentPropertyOrganizer); p != nil {
		out.Organizer = &model.Organizer{
			DisplayName: firstParam(p.ICalParameters, "CN"),
			Email:       stripMailto(p.Value),
		}
	}

	// One ATTENDEE line and many both come back as a slice.
	for _, a := range ve.Attendees() {
		if a == nil {
			continue
		}
		status := model.ParticipationStatus(strings.ToUpper(firstParam(a.ICalParameters, "PARTSTAT")))
		if status == "" {
			status = model.StatusNeedsAction
		}
		out.Attendees = append(out.Attendees, model.Attendee{
			DisplayName: firstParam(a.ICalParameters, "CN"),
			Email:       stripMailto(a.Value),
			Status:      status,
		})
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
		rec, err := parseRecurrence(p.Value, start)
		if err != nil {
			// Keep the event as a single instance.
			appLog.Error("ics rrule parse failed", err, "uid", out.UID, "rrule", p.Value)
		} else {
			rec.ExDates = parseExDates(ve)
			out.Recurrence = rec
		}
	}

	var rid *time.Time
	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parseICSTime(p.Value, firstParam(p.ICalParameters, "TZID")); err == nil {
			rid = &t
			out.ID = out.UID + "@" + t.UTC().Format("20060102T150405Z")
		}
	}

	return out, rid, nil
}

// parseRecurrence turns a raw RRULE value into a RecurrenceSpec anchored at
// start.
func parseRecurrence(raw string, start time.Time) (*model.RecurrenceSpec, error) {
	if start.IsZero() {
		return nil, errors.New("recurring event without DTSTART")
	}

	// A floating UNTIL is read in the series' own zone.
	opt, err := rrule.StrToROptionInLocation(sanitizeRule(raw), start.Location())
	if err != nil {
		return nil, err
	}

	code, ok := model.FrequencyCode(opt.Freq)
	if !ok {
		return nil, fmt.Errorf("unsupported frequency %v", opt.Freq)
	}

	spec := &model.RecurrenceSpec{
		FrequencyCode: code,
		Start:         start,
	}
	if !opt.Until.IsZero() {
		until := opt.Until
		spec.Until = &until
	}

	opt.Until = time.Time{}
	opt.Dtstart = time.Time{}
	spec.Options = *opt
	return spec, nil
}

// sanitizeRule strips the RRULE: prefix and any rule part rrule-go does
// not understand.
func sanitizeRule(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 6 && strings.EqualFold(raw[:6], "RRULE:") {
		raw = raw[6:]
	}

	parts := strings.Split(raw, ";")
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, _, found := strings.Cut(part, "=")
		if !found || !ruleParts[strings.ToUpper(key)] {
			appLog.Debug("ics rrule part dropped", "part", part)
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, ";")
}

// parseExDates collects EXDATE values; a property may carry several
// comma-separated instants and may repeat.
func parseExDates(ve *ical.VEvent) []time.Time {
	var out []time.Time
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		tzid := firstParam(p.ICalParameters, "TZID")
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, tzid); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// parseICSTime parses a DATE or DATE-TIME value. UTC values ("Z" suffix)
// ignore tzid; floating values use tzid when it names a known zone and
// UTC otherwise.
func parseICSTime(v, tzid string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	loc := time.UTC
	if tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}

	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}

func isDateOnly(p *ical.IANAProperty) bool {
	if p == nil {
		return false
	}
	if strings.EqualFold(firstParam(p.ICalParameters, "VALUE"), "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func firstParam(params map[string][]string, key string) string {
	if params == nil {
		return ""
	}
	if vs, ok := params[key]; ok && len(vs) > 0 {
		return strings.Trim(vs[0], `"`)
	}
	return ""
}

func stripMailto(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		return v[7:]
	}
	return v
}
