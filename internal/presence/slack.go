// Package presence pushes a derived status to the presence service.
package presence

import (
	"context"

	"github.com/slack-go/slack"

	"calstatus/internal/errs"
	appLog "calstatus/internal/log"
	"calstatus/internal/model"
)

// statusClient is the part of *slack.Client used here.
type statusClient interface {
	SetUserCustomStatusContext(ctx context.Context, statusText, statusEmoji string, statusExpiration int64) error
	UnsetUserCustomStatusContext(ctx context.Context) error
}

// SlackPublisher sets or clears the Slack custom status of the token's
// owner.
type SlackPublisher struct {
	client statusClient
}

// NewSlackPublisher returns a publisher authenticated with a user token.
// Options are passed to slack.New (tests point slack.OptionAPIURL at a
// local server).
func NewSlackPublisher(token string, opts ...slack.Option) *SlackPublisher {
	return &SlackPublisher{client: slack.New(token, opts...)}
}

// Publish sets st, or clears the custom status when st is nil.
func (p *SlackPublisher) Publish(ctx context.Context, st *model.Status) error {
	if st == nil {
		if err := p.client.UnsetUserCustomStatusContext(ctx); err != nil {
			return errs.Publish("clear status", err)
		}
		appLog.Info("presence status cleared")
		return nil
	}

	if err := p.client.SetUserCustomStatusContext(ctx, st.Text, st.Emoji, st.Expiration); err != nil {
		return errs.Publish("set status", err)
	}
	appLog.Info("presence status set", "text", st.Text, "emoji", st.Emoji, "expiration", st.Expiration)
	return nil
}

// LogPublisher only logs what would be published. Used for dry runs.
type LogPublisher struct{}

// Publish implements the publisher contract without side effects.
func (LogPublisher) Publish(_ context.Context, st *model.Status) error {
	if st == nil {
		appLog.Info("dry run: would clear status")
		return nil
	}
	appLog.Info("dry run: would set status", "text", st.Text, "emoji", st.Emoji, "expiration", st.Expiration)
	return nil
}
