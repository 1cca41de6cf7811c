// Package notify pushes operator alerts for events that need a human: the
// kill switch, failed flattens, lost venue connections.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Event types.
const (
	EventKillSwitch = "kill_switch"
	EventKillFail   = "kill_fail"
	EventVenueDown  = "venue_down"
	EventEarnings   = "earnings_shield"
	EventMaint      = "maintenance"
)

type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier forwards allowed event types to every sender. An empty allow
// list passes everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	log     *slog.Logger
}

func NewNotifier(senders []Sender, events []string, log *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		log:     log.With(slog.String("component", "notifier")),
	}
}

func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if n == nil || len(n.senders) == 0 {
		return nil
	}
	if len(n.events) > 0 && !n.events[event] {
		n.log.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.log.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.log.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	return errors.Join(errs...)
}
