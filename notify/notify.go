// Package notify defines the user-facing notification boundary. The core
// emits blacklist and exhaustion events through a Notifier; a UI layer may
// plug in toasts, while headless callers degrade to logging.
package notify

import (
	"time"

	"github.com/xenscan/chainrpc/pkg/logger"
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notifier surfaces a message to the user. ttl is a display-duration hint;
// implementations may ignore it.
type Notifier interface {
	Notify(message string, level Level, ttl time.Duration)
}

// Nop returns a Notifier that discards everything.
func Nop() Notifier {
	return nopNotifier{}
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, Level, time.Duration) {}

// FromLogger returns a Notifier that writes notifications to lggr at the
// matching level. This is the degradation path when no UI is attached.
func FromLogger(lggr logger.Logger) Notifier {
	return &loggerNotifier{lggr: lggr}
}

type loggerNotifier struct {
	lggr logger.Logger
}

func (n *loggerNotifier) Notify(message string, level Level, _ time.Duration) {
	switch level {
	case LevelError:
		n.lggr.Error(message)
	case LevelWarning:
		n.lggr.Warn(message)
	default:
		n.lggr.Info(message)
	}
}
