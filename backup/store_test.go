package backup

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBackup(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("<bookmarks></bookmarks>"), 0644))
	return path
}

func TestStore_Build(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, 0)
	require.NoError(t, err)

	at := time.UnixMilli(1300000000123)
	path, err := s.Build("bookmarks", at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bookmarks_1300000000123.xml"), path)

	_, err = s.Build("../etc", at)
	assert.Error(t, err)
	_, err = s.Build("", at)
	assert.Error(t, err)
}

func TestParseName(t *testing.T) {
	content, at, ok := ParseName("userdictionary_1300000000123.xml")
	require.True(t, ok)
	assert.Equal(t, "userdictionary", content)
	assert.Equal(t, int64(1300000000123), at.UnixMilli())

	for _, name := range []string{"notes.txt", "bookmarks.xml", "_123.xml", "calllogs_abc.xml"} {
		_, _, ok := ParseName(name)
		assert.False(t, ok, name)
	}
}

func TestStore_AddAndList(t *testing.T) {
	dir := t.TempDir()
	writeBackup(t, dir, "bookmarks_1000.xml")
	writeBackup(t, dir, "stray.txt")

	s, err := NewStore(dir, 0)
	require.NoError(t, err)
	require.Len(t, s.List(), 1)

	path := writeBackup(t, dir, "messages_2000.xml")
	require.NoError(t, s.Add(path))
	assert.Error(t, s.Add(filepath.Join(dir, "stray.txt")))
	assert.Error(t, s.Add(filepath.Join(dir, "calllogs_3000.xml")))

	files := s.List()
	require.Len(t, files, 2)
	assert.Equal(t, "messages_2000.xml", files[0].Name)
	assert.Equal(t, "messages", files[0].ContentName)
	assert.Equal(t, "bookmarks_1000.xml", files[1].Name)
	assert.Equal(t, int64(len("<bookmarks></bookmarks>")), files[1].Size)
}

func TestStore_GetFilePath(t *testing.T) {
	dir := t.TempDir()
	writeBackup(t, dir, "bookmarks_1000.xml")
	s, err := NewStore(dir, 0)
	require.NoError(t, err)

	path, err := s.GetFilePath("bookmarks_1000.xml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bookmarks_1000.xml"), path)

	_, err = s.GetFilePath("../bookmarks_1000.xml")
	assert.EqualError(t, err, "invalid filename")

	_, err = s.GetFilePath("messages_1.xml")
	assert.EqualError(t, err, "file not found")

	writeBackup(t, dir, "bookmarks_2000.xml.part")
	_, err = s.GetFilePath("bookmarks_2000.xml.part")
	assert.EqualError(t, err, "not a backup file")
}

func TestStore_Cleanup(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := writeBackup(t, dir, "bookmarks_"+formatMillis(now.Add(-2*time.Hour))+".xml")
	fresh := writeBackup(t, dir, "bookmarks_"+formatMillis(now.Add(-time.Minute))+".xml")

	s, err := NewStore(dir, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, s.cleanup(context.Background(), now))
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.Len(t, s.List(), 1)
}

func TestStore_CleanupLoopDisabled(t *testing.T) {
	s, err := NewStore(t.TempDir(), 0)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.CleanupLoop(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop should return immediately without a lifetime")
	}
}

func TestStore_Watch(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	// The watcher registers asynchronously; keep touching until it indexes.
	path := filepath.Join(dir, "calllogs_5000.xml")
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("<calls></calls>"), 0644)
		return len(s.List()) == 1
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		return len(s.List()) == 0
	}, 2*time.Second, 20*time.Millisecond)

	// In-progress files are skipped; the rename to the backup name indexes it.
	partial := filepath.Join(dir, "bookmarks_6000.xml.part")
	writeBackup(t, dir, "bookmarks_6000.xml.part")
	require.NoError(t, os.Rename(partial, filepath.Join(dir, "bookmarks_6000.xml")))
	assert.Eventually(t, func() bool {
		files := s.List()
		return len(files) == 1 && files[0].Name == "bookmarks_6000.xml"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestResourceGuard(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, ResourceGuard{}.Check(dir))

	err := ResourceGuard{MinFreeDisk: math.MaxInt64}.Check(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough free disk space")

	err = ResourceGuard{MinFreeMem: math.MaxInt64}.Check(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough free memory")
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
