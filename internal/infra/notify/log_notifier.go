// File: internal/infra/notify/log_notifier.go
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain/ports/adapter"
)

// LogNotifier writes notification events to the service log. It stands in for
// the job board's real notification channel until one is wired up.
type LogNotifier struct {
	log *zerolog.Logger
}

var _ adapter.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	compLog := logger.With().Str("component", "Notifier").Logger()
	return &LogNotifier{log: &compLog}
}

func (n *LogNotifier) Notify(_ context.Context, userID string, kind adapter.NotificationKind, payload map[string]string) error {
	evt := n.log.Info().Str("user_id", userID).Str("kind", string(kind))
	for k, v := range payload {
		evt = evt.Str(k, v)
	}
	evt.Msg("notification dispatched")
	return nil
}
