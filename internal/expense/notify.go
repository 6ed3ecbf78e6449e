package expense

import (
	"log/slog"

	"github.com/expensio/expensio/internal/extraction"
)

// Notifier receives the engine's processing status events. The engine emits
// them as data; how they reach a user (push, websocket, toast) is whatever
// the Notifier implementation decides.
type Notifier interface {
	Notify(event extraction.StatusEvent)
}

// logNotifier reports status events through the structured log.
type logNotifier struct{}

// NewLogNotifier returns a Notifier that writes events to slog.
func NewLogNotifier() Notifier {
	return logNotifier{}
}

func (logNotifier) Notify(event extraction.StatusEvent) {
	slog.Info("Receipt processing status",
		"state", event.State.String(),
		"message", event.Message,
		"image_ref", event.ImageRef,
	)
}
