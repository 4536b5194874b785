package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/config"
)

// slackAPI is the slice of the Slack client we use, extracted so tests can
// substitute a mock.
type slackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts run notifications to a Slack channel.
type SlackNotifier struct {
	api     slackAPI
	channel string
}

// NewSlackNotifier creates a Slack notifier from config.
func NewSlackNotifier(cfg *config.NotifyConfig) (*SlackNotifier, error) {
	if cfg.SlackToken == "" {
		return nil, fmt.Errorf("slack token is required")
	}
	return &SlackNotifier{
		api:     slack.New(cfg.SlackToken),
		channel: cfg.SlackChannel,
	}, nil
}

// NewSlackNotifierWithAPI wraps a caller-supplied client. Used by tests.
func NewSlackNotifierWithAPI(api slackAPI, channel string) *SlackNotifier {
	return &SlackNotifier{api: api, channel: channel}
}

// Send posts the notification as a single message, subject bolded above
// the body.
func (n *SlackNotifier) Send(ctx context.Context, subject, body string) error {
	text := fmt.Sprintf("*%s*\n%s", subject, body)
	_, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("post slack message: %w", err)
	}
	return nil
}
