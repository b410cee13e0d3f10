package cmd

import (
	"slightbackup/backup"
	"slightbackup/config"
	"slightbackup/exporter"
	"slightbackup/logging"
	"slightbackup/notify"
	"slightbackup/source"
	"slightbackup/task"

	"github.com/pkg/errors"
)

// app holds the collaborators shared by the serve and export commands.
type app struct {
	cfg      *config.Config
	db       *source.DB
	store    *backup.Store
	registry *task.Registry
	notifier notify.Notifier
}

func newApp(cfg *config.Config) (*app, error) {
	db, err := source.Open(cfg.DataSource)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	store, err := backup.NewStore(cfg.BackupDir, cfg.BackupLifetime)
	if err != nil {
		db.Close()
		return nil, err
	}

	registry := task.NewRegistry()
	guard := backup.ResourceGuard{MinFreeDisk: cfg.ThrottleFreeDisk, MinFreeMem: cfg.ThrottleFreeMem}
	if err := exporter.Register(registry, db, guard); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to register exporters")
	}

	notifiers := notify.Multi{notify.LogNotifier{Log: logging.Default()}}
	if cfg.NotifyCmd != "" {
		cn, err := notify.NewCommandNotifier(cfg.NotifyCmd)
		if err != nil {
			db.Close()
			return nil, errors.Wrap(err, "invalid notify command")
		}
		notifiers = append(notifiers, cn)
	}

	return &app{
		cfg:      cfg,
		db:       db,
		store:    store,
		registry: registry,
		notifier: notifiers,
	}, nil
}

func (a *app) coordinatorOptions() []task.Option {
	opts := []task.Option{task.WithLogger(logging.Default())}
	if a.cfg.DistinctCancellation {
		opts = append(opts, task.WithDistinctCancellation())
	}
	return opts
}

func (a *app) Close() error {
	return a.db.Close()
}
