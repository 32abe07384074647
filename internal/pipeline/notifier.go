package pipeline

import "github.com/MimeLyc/srt-batch-translator/pkg/log"

// Notifier receives human readable progress messages. Calls are fire and
// forget.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// LogNotifier writes progress at info level
type LogNotifier struct{}

func (LogNotifier) Notify(message string) {
	log.Info("%s", message)
}
