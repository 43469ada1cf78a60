package library

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "nested", "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationsAreRecorded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	db, err := NewDatabase(path)
	require.NoError(t, err)

	var version int
	require.NoError(t, db.db.QueryRow(`SELECT value FROM meta WHERE key='schema_version'`).Scan(&version))
	assert.Equal(t, schemaVersion, version)
	require.NoError(t, db.Save(KindBooks, []byte(`[]`)))
	require.NoError(t, db.Close())

	// Reopening an up-to-date database keeps its data.
	db, err = NewDatabase(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	payload, err := db.Load(KindBooks)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(payload))
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := tempDB(t)

	payload, err := db.Load(KindStudents)
	require.NoError(t, err)
	assert.Nil(t, payload)
	at, err := db.SavedAt(KindStudents)
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	require.NoError(t, db.Save(KindStudents, []byte(`[{"name":"first"}]`)))
	require.NoError(t, db.Save(KindStudents, []byte(`[{"name":"second"}]`)))
	payload, err = db.Load(KindStudents)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"second"}]`, string(payload))

	at, err = db.SavedAt(KindStudents)
	require.NoError(t, err)
	assert.False(t, at.IsZero())
}

func TestCorruptSnapshot(t *testing.T) {
	db := tempDB(t)
	require.NoError(t, db.Save(KindLoans, []byte(`[]`)))
	_, err := db.db.Exec(`UPDATE snapshots SET payload=? WHERE kind=?`, []byte(`[{}]`), string(KindLoans))
	require.NoError(t, err)

	_, err = db.Load(KindLoans)
	require.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestCorruptSnapshotIsSkippedOnLoad(t *testing.T) {
	db := tempDB(t)
	mgr, err := NewLibraryManager(db, WithClock(func() time.Time { return testNow }), WithSearchIndex(db))
	require.NoError(t, err)
	admin, _, err := mgr.EnsureDefaultAdmin(testPerson("0801198000001", 45))
	require.NoError(t, err)
	stock(t, mgr, admin, 1, isbnQuixote)

	_, err = db.db.Exec(`UPDATE snapshots SET checksum='bad' WHERE kind=?`, string(KindBooks))
	require.NoError(t, err)

	reloaded, err := NewLibraryManager(db, WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	counts := reloaded.Counts()
	assert.Equal(t, 0, counts[KindBooks])
	assert.Equal(t, 1, counts[KindEmployees])
	require.Len(t, reloaded.LoadProblems(), 1)
	assert.Equal(t, KindBooks, reloaded.LoadProblems()[0].Kind)
}

func TestSearchIndex(t *testing.T) {
	db := tempDB(t)
	cien := newTestBook(t, isbnQuixote, 1)
	cien.Title, cien.Author = "Cien Años de Soledad", "Gabriel García Márquez"
	odyssey := newTestBook(t, isbnOdyssey, 1)
	odyssey.Title, odyssey.Author, odyssey.Genre = "The Odyssey", "Homer", "Epic_Poetry"
	require.NoError(t, db.IndexBooks([]*Book{odyssey, cien}))

	tests := map[string][]string{
		"garcia marquez": {cien.ISBN},
		"AÑOS":           {cien.ISBN},
		"9780140449136":  {odyssey.ISBN},
		"o":              {cien.ISBN, odyssey.ISBN},
		"epic_":          {odyssey.ISBN},
		"%":              {},
		"   ":            {},
	}
	for query, want := range tests {
		got, err := db.SearchBooks(query)
		require.NoError(t, err, query)
		assert.Equal(t, want, got, query)
	}

	// Re-indexing replaces the previous catalog.
	require.NoError(t, db.IndexBooks([]*Book{odyssey}))
	got, err := db.SearchBooks("soledad")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestConcurrentSaves(t *testing.T) {
	db := tempDB(t)

	var wg sync.WaitGroup
	errs := make(chan error, len(Kinds)*5)
	for _, kind := range Kinds {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(kind Kind, i int) {
				defer wg.Done()
				errs <- db.Save(kind, []byte(fmt.Sprintf(`[%d]`, i)))
			}(kind, i)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for _, kind := range Kinds {
		payload, err := db.Load(kind)
		require.NoError(t, err)
		assert.Len(t, payload, 3, kind)
	}
}
