package status

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"calstatus/internal/model"
)

const (
	DefaultText  = "In a meeting"
	DefaultEmoji = ":calendar:"

	// DefaultDirective is the keyword of the description override
	// "<directive> <emoji> <text>".
	DefaultDirective = "jkstat"

	// MaxTextLength is the presence service's status text limit.
	MaxTextLength = 100
)

type rule struct {
	match func(ev model.Event) bool
	text  string
	emoji string
}

// Deriver maps a resolved event to a Status. Rules run in order and a later
// match overwrites an earlier one; the description directive runs last.
type Deriver struct {
	rules     []rule
	directive *regexp.Regexp
}

var (
	transitRe = regexp.MustCompile(`(?i)in transit`)
	eatingRe  = regexp.MustCompile(`(?i)lunch|eat`)
)

// NewDeriver builds a Deriver. outMarker (e.g. "jk out") enables the
// "Out and about" rule when non-empty; directive defaults to "jkstat".
func NewDeriver(outMarker, directive string) (*Deriver, error) {
	d := &Deriver{
		rules: []rule{
			{match: summaryMatches(transitRe), text: "In transit", emoji: ":runner:"},
			{match: summaryMatches(eatingRe), text: "Eating", emoji: ":taco:"},
		},
	}

	if outMarker = strings.TrimSpace(outMarker); outMarker != "" {
		outRe := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(outMarker))
		d.rules = append(d.rules, rule{match: summaryMatches(outRe), text: "Out and about", emoji: ":beach_with_umbrella:"})
	}

	directive = strings.TrimSpace(directive)
	if directive == "" {
		directive = DefaultDirective
	}
	re, err := regexp.Compile(`(?im)` + regexp.QuoteMeta(directive) + `[ \t]+(\S+)[ \t]+([^\r\n]+)`)
	if err != nil {
		return nil, fmt.Errorf("directive %q: %w", directive, err)
	}
	d.directive = re

	return d, nil
}

// Derive returns the status for r. Expiration is always r.EffectiveEnd.
func (d *Deriver) Derive(r model.ResolvedEvent) model.Status {
	st := model.Status{
		Text:       DefaultText,
		Emoji:      DefaultEmoji,
		Expiration: r.EffectiveEnd.Unix(),
	}

	for _, rl := range d.rules {
		if rl.match(r.Event) {
			st.Text = rl.text
			st.Emoji = rl.emoji
		}
	}

	if m := d.directive.FindStringSubmatch(r.Event.Description); m != nil {
		st.Emoji = m[1]
		st.Text = m[2]
	}

	st.Text = truncate(strings.TrimSpace(st.Text), MaxTextLength)
	return st
}

func summaryMatches(re *regexp.Regexp) func(model.Event) bool {
	return func(ev model.Event) bool {
		return re.MatchString(ev.Summary)
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
