package notify

import (
	"context"
	"log/slog"
)

// LogNotifier records notifications in the service log. It is used when no
// broker is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.log.InfoContext(ctx, "notification", "type", n.Type, "user_id", n.UserID, "data", n.Data)
	return nil
}
