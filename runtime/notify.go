package runtime

import (
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

// Notifier tells the user that background work finished.
type Notifier interface {
	Notify(title, message string) error
}

// DesktopNotifier sends desktop notifications.
type DesktopNotifier struct {
	logger zerolog.Logger
}

// NewDesktopNotifier creates a DesktopNotifier.
func NewDesktopNotifier(logger zerolog.Logger) *DesktopNotifier {
	return &DesktopNotifier{logger: logger.With().Str("component", "notifier").Logger()}
}

// Notify shows a desktop notification. Failures are logged and returned;
// callers are expected to carry on.
func (n *DesktopNotifier) Notify(title, message string) error {
	if err := beeep.Notify(title, message, ""); err != nil {
		// Common causes: notification permissions not granted, or no notification daemon.
		n.logger.Warn().Err(err).Msg("Failed to send desktop notification")
		return err
	}
	n.logger.Debug().Str("title", title).Msg("Desktop notification sent")
	return nil
}
