package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"slightbackup/logging"
	"slightbackup/notify"
	"slightbackup/task"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "export <bookmarks|calllog|messages|userdictionary>",
		Short:     "Run one export in the foreground; Ctrl+C cancels it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bookmarks", "calllog", "messages", "userdictionary"},
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := task.ParseSelector(args[0])
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), opts, sel)
		},
	}
}

// consoleObserver logs task progress to the terminal.
type consoleObserver struct {
	task.BaseObserver
	log  *logrus.Entry
	done chan task.Outcome
}

func (o *consoleObserver) OnTaskStarted(id string, sel task.Selector) {
	o.log.WithFields(logging.TaskFields(id, string(sel))).Info(notify.Exporting(sel).Text)
}

func (o *consoleObserver) OnTaskProgress(id string, done, total int) {
	o.log.WithFields(logrus.Fields{"done": done, "total": total}).Debug("Export progress.")
}

func (o *consoleObserver) OnTaskCancelled(id string) {
	o.log.Info("Cancelling, waiting for the exporter to stop.")
}

func (o *consoleObserver) OnTaskFinished(id string, outcome task.Outcome) {
	o.done <- outcome
}

func runExport(parent context.Context, opts *rootOptions, sel task.Selector) error {
	a, err := newApp(opts.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	console := &consoleObserver{log: logging.Default(), done: make(chan task.Outcome, 1)}
	coord := task.NewCoordinator(a.registry, a.store, console, a.coordinatorOptions()...)
	defer coord.Wait()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	go coord.Run(ctx)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	t, err := coord.Start(sel)
	if err != nil {
		return err
	}

	for {
		select {
		case <-sigs:
			coord.CancelTask(t)
		case outcome := <-console.done:
			msg := notify.ForOutcome(sel, outcome)
			if err := a.notifier.Notify(msg); err != nil {
				logging.Default().WithError(err).Warn("Notification failed.")
			}
			if outcome.Kind == task.OutcomeFailed {
				return errors.New(outcome.Error)
			}
			return nil
		}
	}
}
