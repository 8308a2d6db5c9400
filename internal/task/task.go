// Package task runs one calendar-to-presence pass:
// fetch → resolve → derive → publish.
package task

import (
	"context"
	"time"

	"calstatus/internal/config"
	"calstatus/internal/errs"
	appLog "calstatus/internal/log"
	"calstatus/internal/model"
	"calstatus/internal/resolve"
	"calstatus/internal/status"
)

// Ack is returned by Run on success.
const Ack = "OK"

// SnapshotProvider fetches the calendar feed.
type SnapshotProvider interface {
	Fetch(ctx context.Context, feedURL string) (model.Snapshot, error)
}

// Publisher pushes a status; nil clears it.
type Publisher interface {
	Publish(ctx context.Context, st *model.Status) error
}

// Task holds the collaborators and the configuration for one user.
type Task struct {
	feedURL   string
	provider  SnapshotProvider
	publisher Publisher
	resolver  *resolve.Resolver
	deriver   *status.Deriver
	now       func() time.Time
}

// Option customizes a Task.
type Option func(*Task)

// WithClock overrides the time source used as the reference instant.
func WithClock(now func() time.Time) Option {
	return func(t *Task) { t.now = now }
}

// New builds a Task from cfg.
func New(cfg *config.Config, provider SnapshotProvider, publisher Publisher, opts ...Option) (*Task, error) {
	filter, err := resolve.NewFilter(cfg.User, cfg.ExcludeOrganizers)
	if err != nil {
		return nil, err
	}
	deriver, err := status.NewDeriver(cfg.OutMarker, cfg.Directive)
	if err != nil {
		return nil, err
	}

	t := &Task{
		feedURL:   cfg.FeedURL,
		provider:  provider,
		publisher: publisher,
		resolver:  resolve.NewResolver(filter),
		deriver:   deriver,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Run executes one pass. The trigger payload is ignored. It returns Ack, or
// the first collaborator error; nothing is published when the fetch fails.
func (t *Task) Run(ctx context.Context, _ any) (string, error) {
	snap, err := t.provider.Fetch(ctx, t.feedURL)
	if err != nil {
		if errs.KindOf(err) == "" {
			err = errs.Fetch("fetch feed", err)
		}
		return "", err
	}

	reference := t.now()
	st := t.Decide(snap, reference)

	if err := t.publisher.Publish(ctx, st); err != nil {
		if errs.KindOf(err) == "" {
			err = errs.Publish("publish status", err)
		}
		return "", err
	}
	return Ack, nil
}

// Decide resolves the event governing reference and derives its status.
// A nil result means "no status".
func (t *Task) Decide(snap model.Snapshot, reference time.Time) *model.Status {
	resolved := t.resolver.ResolveCurrent(snap, reference)
	if resolved == nil {
		appLog.Info("no current event", "events", len(snap), "reference", reference.Format(time.RFC3339))
		return nil
	}

	st := t.deriver.Derive(*resolved)
	appLog.Info("current event resolved",
		"id", resolved.Event.ID,
		"summary", resolved.Event.Summary,
		"effective_end", resolved.EffectiveEnd.Format(time.RFC3339),
		"status_text", st.Text,
		"status_emoji", st.Emoji,
	)
	return &st
}
