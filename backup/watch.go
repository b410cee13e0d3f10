package backup

import (
	"context"
	"path/filepath"

	"slightbackup/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watch keeps the index in sync with files created or removed outside the
// store until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "could not create backup directory watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return errors.Wrap(err, "could not watch backup directory")
	}
	log := logging.GetLogger(ctx).WithField("dir", s.dir)
	log.Debug("Watching backup directory.")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.apply(ctx, ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("Backup directory watcher error.")
		}
	}
}

// apply ignores anything ParseName rejects, including files still being
// written under the exporter's partial suffix.
func (s *Store) apply(ctx context.Context, ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	if _, _, ok := ParseName(name); !ok {
		return
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		s.forget(name)
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		if err := s.Add(name); err != nil {
			logging.GetLogger(ctx).WithError(err).WithField("file", name).Debug("Backup file vanished before indexing.")
		}
	}
}
