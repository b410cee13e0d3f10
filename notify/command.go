package notify

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/pkg/errors"
)

// Placeholders substituted into notification commands.
const (
	MessagePlaceholder = "${MESSAGE}"
	LevelPlaceholder   = "${LEVEL}"
)

const defaultCommandTimeout = 10 * time.Second

// SplitCommand splits a command string into arguments without a shell.
func SplitCommand(command string) ([]string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, errors.Wrap(err, "invalid command syntax")
	}
	return args, nil
}

// ValidateArgs rejects shell metacharacters outside the placeholders and
// requires the message placeholder.
func ValidateArgs(args []string) error {
	hasMessage := false
	for _, arg := range args {
		if strings.Contains(arg, MessagePlaceholder) {
			hasMessage = true
		}
		rest := strings.NewReplacer(MessagePlaceholder, "", LevelPlaceholder, "").Replace(arg)
		if strings.ContainsAny(rest, "|&;`$()<>") {
			return errors.Errorf("disallowed character found in argument: %s", arg)
		}
	}
	if !hasMessage {
		return errors.Errorf("command must include the message placeholder '%s'", MessagePlaceholder)
	}
	return nil
}

// CommandNotifier runs an external command, such as notify-send, per message.
type CommandNotifier struct {
	bin     string
	args    []string
	timeout time.Duration
}

func NewCommandNotifier(command string) (*CommandNotifier, error) {
	args, err := SplitCommand(command)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, errors.New("empty notify command")
	}
	if err := ValidateArgs(args[1:]); err != nil {
		return nil, err
	}
	bin, err := exec.LookPath(args[0])
	if err != nil {
		return nil, errors.Errorf("notify binary not found or not in PATH: %s", args[0])
	}
	return &CommandNotifier{bin: bin, args: args[1:], timeout: defaultCommandTimeout}, nil
}

func (n *CommandNotifier) Args(msg Message) []string {
	r := strings.NewReplacer(MessagePlaceholder, msg.Text, LevelPlaceholder, string(msg.Level))
	args := make([]string, len(n.args))
	for i, arg := range n.args {
		args[i] = r.Replace(arg)
	}
	return args
}

func (n *CommandNotifier) Notify(msg Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, n.bin, n.Args(msg)...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "notify command failed: %s", strings.TrimSpace(string(out)))
	}
	return nil
}
