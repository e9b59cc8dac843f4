package alerting

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes rendered alerts to the log. It stands in when no push
// channel is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier constructs a log-only notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify logs the rendered notification at warn level.
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	text, err := Render(note)
	if err != nil {
		return err
	}
	n.logger.Warn().
		Str("kind", string(note.Kind)).
		Str("asin", note.ASIN()).
		Str("key", note.Key()).
		Msg(text)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
