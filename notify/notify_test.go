package notify

import (
	"os/exec"
	"testing"

	"slightbackup/task"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForOutcome(t *testing.T) {
	msg := ForOutcome(task.SelectorCallLog, task.Exported(12, "/backup/calllogs_1.xml"))
	assert.Equal(t, Message{Level: LevelSuccess, Text: "Exported 12 call logs to /backup/calllogs_1.xml"}, msg)

	msg = ForOutcome(task.SelectorBookmarks, task.NoData())
	assert.Equal(t, LevelInfo, msg.Level)
	assert.Equal(t, "There is no data to export", msg.Text)

	msg = ForOutcome(task.SelectorMessages, task.Failed(errors.New("disk full")))
	assert.Equal(t, Message{Level: LevelError, Text: "Something went wrong: disk full"}, msg)

	msg = ForOutcome(task.SelectorUserDictionary, task.Cancelled(3, ""))
	assert.Equal(t, "Export of user dictionary cancelled after 3 records", msg.Text)

	assert.Equal(t, "Exporting messages...", Exporting(task.SelectorMessages).Text)
	assert.Equal(t, "fax", Label(task.Selector("fax")))
}

func TestLogNotifier(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := LogNotifier{Log: logrus.NewEntry(logger)}

	require.NoError(t, n.Notify(Message{Level: LevelError, Text: "Something went wrong: disk full"}))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "Something went wrong: disk full", hook.LastEntry().Message)

	require.NoError(t, n.Notify(Message{Level: LevelSuccess, Text: "done"}))
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(Message) error {
	f.calls++
	return errors.New("sink down")
}

func TestMulti(t *testing.T) {
	a, b := &failingNotifier{}, &failingNotifier{}
	err := Multi{a, b}.Notify(Message{Text: "x"})
	assert.EqualError(t, err, "sink down")
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestSplitCommand(t *testing.T) {
	args, err := SplitCommand(`notify-send -u normal "Slight Backup" ${MESSAGE}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"notify-send", "-u", "normal", "Slight Backup", "${MESSAGE}"}, args)
}

func TestValidateArgs(t *testing.T) {
	t.Run("valid command", func(t *testing.T) {
		args, _ := SplitCommand(`--urgency=${LEVEL} --text=${MESSAGE}`)
		assert.NoError(t, ValidateArgs(args))
	})

	t.Run("missing message placeholder", func(t *testing.T) {
		args, _ := SplitCommand(`-u normal hello`)
		err := ValidateArgs(args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must include the message placeholder")
	})

	t.Run("disallowed character", func(t *testing.T) {
		args, _ := SplitCommand(`${MESSAGE}; rm -rf /`)
		err := ValidateArgs(args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disallowed character found in argument: ${MESSAGE};")
	})
}

func TestCommandNotifier(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}

	n, err := NewCommandNotifier(`true --level ${LEVEL} ${MESSAGE}`)
	require.NoError(t, err)
	msg := Message{Level: LevelSuccess, Text: "Exported 3 bookmarks"}
	assert.Equal(t, []string{"--level", "success", "Exported 3 bookmarks"}, n.Args(msg))
	assert.NoError(t, n.Notify(msg))

	_, err = NewCommandNotifier(`definitely-not-a-notifier ${MESSAGE}`)
	assert.Error(t, err)

	_, err = NewCommandNotifier(``)
	assert.Error(t, err)
}
