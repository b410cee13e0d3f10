// Package notify turns task outcomes into user-visible messages and hands
// them to a notification sink.
package notify

import (
	"fmt"

	"slightbackup/task"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

var labels = map[task.Selector]string{
	task.SelectorBookmarks:      "bookmarks",
	task.SelectorCallLog:        "call logs",
	task.SelectorMessages:       "messages",
	task.SelectorUserDictionary: "user dictionary",
}

// Label is the human name of the content a selector exports.
func Label(sel task.Selector) string {
	if l, ok := labels[sel]; ok {
		return l
	}
	return string(sel)
}

func Exporting(sel task.Selector) Message {
	return Message{Level: LevelInfo, Text: fmt.Sprintf("Exporting %s...", Label(sel))}
}

func ForOutcome(sel task.Selector, o task.Outcome) Message {
	switch o.Kind {
	case task.OutcomeExported:
		return Message{Level: LevelSuccess, Text: fmt.Sprintf("Exported %d %s to %s", o.Count, Label(sel), o.Path)}
	case task.OutcomeNoData:
		return Message{Level: LevelInfo, Text: "There is no data to export"}
	case task.OutcomeCancelled:
		return Message{Level: LevelInfo, Text: fmt.Sprintf("Export of %s cancelled after %d records", Label(sel), o.Count)}
	default:
		return Message{Level: LevelError, Text: fmt.Sprintf("Something went wrong: %s", o.Error)}
	}
}

type Notifier interface {
	Notify(msg Message) error
}

// LogNotifier writes messages to a logrus entry.
type LogNotifier struct {
	Log *logrus.Entry
}

func (n LogNotifier) Notify(msg Message) error {
	entry := n.Log.WithField("level.notify", msg.Level)
	if msg.Level == LevelError {
		entry.Error(msg.Text)
	} else {
		entry.Info(msg.Text)
	}
	return nil
}

// Multi delivers to every notifier and returns the first error.
type Multi []Notifier

func (m Multi) Notify(msg Message) error {
	var first error
	for _, n := range m {
		if err := n.Notify(msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}
