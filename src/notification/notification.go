// Package notification tells the user a capture finished.
package notification

import (
	"fmt"
	"path/filepath"

	"finalshot/src/logutil"
)

// Notifier shows a short message. Implementations must not block for long.
type Notifier interface {
	Notify(title, message string)
}

// Log writes notifications to the diagnostic log.
type Log struct{}

func (Log) Notify(title, message string) {
	logutil.WithComponent("notification").Info().Str("title", title).Msg(message)
}

// Func adapts a function to Notifier.
type Func func(title, message string)

func (f Func) Notify(title, message string) { f(title, message) }

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(title, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(title, message)
		}
	}
}

// CaptureSaved formats the message shown after a successful capture.
func CaptureSaved(path string, width, height int) (string, string) {
	return "Screenshot saved", fmt.Sprintf("%s (%dx%d)", filepath.Base(path), width, height)
}
