// Package backup names, indexes and expires the backup files written by the
// exporters.
package backup

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"slightbackup/logging"

	"github.com/pkg/errors"
)

const (
	Separator = "_"
	Extension = ".xml"
)

// File is one backup in the store.
type File struct {
	Name        string    `json:"name"`
	Path        string    `json:"-"`
	ContentName string    `json:"contentName"`
	CreatedAt   time.Time `json:"createdAt"`
	Size        int64     `json:"size"`
}

// Store keeps an index of the backup directory.
type Store struct {
	dir      string
	lifetime time.Duration

	mu    sync.RWMutex
	files map[string]File
}

// NewStore creates dir if needed and indexes the backups already in it.
// A zero lifetime keeps backups forever.
func NewStore(dir string, lifetime time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "could not create backup directory")
	}
	s := &Store{
		dir:      dir,
		lifetime: lifetime,
		files:    make(map[string]File),
	}
	if err := s.Rescan(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Build returns <dir>/<contentName>_<unix millis>.xml.
func (s *Store) Build(contentName string, at time.Time) (string, error) {
	if contentName == "" || strings.ContainsAny(contentName, `/\`) {
		return "", errors.Errorf("invalid content name %q", contentName)
	}
	name := contentName + Separator + strconv.FormatInt(at.UnixMilli(), 10) + Extension
	return filepath.Join(s.dir, name), nil
}

// ParseName splits a backup file name into content name and creation time.
func ParseName(name string) (string, time.Time, bool) {
	if !strings.HasSuffix(name, Extension) {
		return "", time.Time{}, false
	}
	stem := strings.TrimSuffix(name, Extension)
	i := strings.LastIndex(stem, Separator)
	if i <= 0 {
		return "", time.Time{}, false
	}
	millis, err := strconv.ParseInt(stem[i+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return stem[:i], time.UnixMilli(millis), true
}

// Add indexes the backup at path.
func (s *Store) Add(path string) error {
	name := filepath.Base(path)
	content, at, ok := ParseName(name)
	if !ok {
		return errors.Errorf("not a backup file: %s", name)
	}
	info, err := os.Stat(filepath.Join(s.dir, name))
	if err != nil {
		return errors.Wrap(err, "could not stat backup file")
	}

	s.mu.Lock()
	s.files[name] = File{
		Name:        name,
		Path:        filepath.Join(s.dir, name),
		ContentName: content,
		CreatedAt:   at,
		Size:        info.Size(),
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) forget(name string) {
	s.mu.Lock()
	delete(s.files, name)
	s.mu.Unlock()
}

// Rescan rebuilds the index from the directory contents.
func (s *Store) Rescan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return errors.Wrap(err, "could not read backup directory")
	}

	s.mu.Lock()
	s.files = make(map[string]File)
	s.mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, _, ok := ParseName(entry.Name()); !ok {
			continue
		}
		if err := s.Add(entry.Name()); err != nil {
			logging.Default().WithError(err).WithField("file", entry.Name()).Warn("Skipping backup file.")
		}
	}
	return nil
}

// List returns the indexed backups, newest first.
func (s *Store) List() []File {
	s.mu.RLock()
	files := make([]File, 0, len(s.files))
	for _, f := range s.files {
		files = append(files, f)
	}
	s.mu.RUnlock()

	sort.Slice(files, func(i, j int) bool {
		if files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].Name < files[j].Name
		}
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files
}

func (s *Store) GetFilePath(filename string) (string, error) {
	// Security: Prevent path traversal
	cleanFilename := filepath.Base(filename)
	if cleanFilename != filename {
		return "", errors.New("invalid filename")
	}
	if _, _, ok := ParseName(cleanFilename); !ok {
		return "", errors.New("not a backup file")
	}

	fullPath := filepath.Join(s.dir, cleanFilename)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return "", errors.New("file not found")
	}
	return fullPath, nil
}

// CleanupLoop periodically removes backups older than the store lifetime.
func (s *Store) CleanupLoop(ctx context.Context) {
	if s.lifetime <= 0 {
		return
	}
	log := logging.GetLogger(ctx)

	ticker := time.NewTicker(s.lifetime / 4) // Check 4 times per lifetime
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Cleanup loop shutting down.")
			return
		case now := <-ticker.C:
			s.cleanup(ctx, now)
		}
	}
}

func (s *Store) cleanup(ctx context.Context, now time.Time) int {
	log := logging.GetLogger(ctx)
	removed := 0
	for _, f := range s.List() {
		if now.Sub(f.CreatedAt) <= s.lifetime {
			continue
		}
		log.WithField("file", f.Name).Info("Cleaning up old backup file.")
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			log.WithError(err).WithField("file", f.Name).Warn("Could not remove backup file.")
			continue
		}
		s.forget(f.Name)
		removed++
	}
	return removed
}
