package source

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "device.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())
	// Migrating twice is harmless.
	require.NoError(t, db.Migrate())

	for _, table := range []string{"bookmarks", "calls", "sms", "words"} {
		var n int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}

	_, err = db.Exec("INSERT INTO words (word, frequency, locale) VALUES (?, ?, ?)", "gopher", 200, "en_US")
	require.NoError(t, err)
	var word string
	require.NoError(t, db.QueryRow("SELECT word FROM words").Scan(&word))
	assert.Equal(t, "gopher", word)
}
