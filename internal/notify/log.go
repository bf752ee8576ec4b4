package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes messages to the service log. It is used when no email
// delivery is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(ctx context.Context, message string) error {
	n.logger.InfoContext(ctx, "Operator notification", "message", message)
	return nil
}
