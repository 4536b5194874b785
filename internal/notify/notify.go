// Package notify delivers run lifecycle notifications. Delivery is always
// best effort: a channel failure is logged and never propagates into the
// pipeline.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/logging"
)

// Notifier delivers one notification to one channel.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// Multi fans a notification out to every configured channel. Send returns
// the joined per-channel errors so callers can log them, but the run
// orchestration treats any result as success.
type Multi struct {
	targets []Notifier
	log     *logging.Logger
}

// NewMulti creates a fan-out notifier.
func NewMulti(log *logging.Logger, targets ...Notifier) *Multi {
	if log == nil {
		log = logging.NewLogger(logging.LevelInfo, logging.FormatJSON)
	}
	return &Multi{targets: targets, log: log.WithField("component", "notify")}
}

// Send delivers to all channels.
func (m *Multi) Send(ctx context.Context, subject, body string) error {
	var errs []error
	for _, target := range m.targets {
		if err := target.Send(ctx, subject, body); err != nil {
			m.log.WithError(err).Warnf("notification channel %T failed", target)
			errs = append(errs, fmt.Errorf("%T: %w", target, err))
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes notifications to the structured log. Always configured
// as the channel of last resort.
type LogNotifier struct {
	log *logging.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log *logging.Logger) *LogNotifier {
	if log == nil {
		log = logging.NewLogger(logging.LevelInfo, logging.FormatJSON)
	}
	return &LogNotifier{log: log}
}

// Send logs the notification.
func (n *LogNotifier) Send(ctx context.Context, subject, body string) error {
	n.log.WithField("subject", subject).Info(body)
	return nil
}
