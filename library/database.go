package library

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/blake2b"
)

// Database keeps collection snapshots and a catalog search index in SQLite.
type Database struct {
	db *sql.DB

	loadStmt *sql.Stmt
	saveStmt *sql.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.loadStmt != nil {
		d.loadStmt.Close()
	}
	if d.saveStmt != nil {
		d.saveStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

// migrations[i] moves the schema from version i to i+1.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS snapshots (
            kind TEXT PRIMARY KEY,
            payload BLOB NOT NULL,
            checksum TEXT NOT NULL,
            saved_at DATETIME NOT NULL
        );`,
	},
	{
		`CREATE TABLE IF NOT EXISTS book_index (
            isbn_key TEXT PRIMARY KEY,
            isbn TEXT NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            genre TEXT NOT NULL,
            search TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_book_index_title ON book_index(title);`,
	},
}

var schemaVersion = len(migrations)

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for version := current; version < schemaVersion; version++ {
		for _, stmt := range migrations[version] {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("apply migration %d: %w", version+1, err)
			}
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.loadStmt, err = d.db.Prepare(`SELECT payload, checksum FROM snapshots WHERE kind=?`); err != nil {
		return err
	}
	if d.saveStmt, err = d.db.Prepare(`INSERT INTO snapshots(kind,payload,checksum,saved_at) VALUES(?,?,?,?)
        ON CONFLICT(kind) DO UPDATE SET payload=excluded.payload, checksum=excluded.checksum, saved_at=excluded.saved_at`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

func checksum(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Load returns the stored snapshot of kind, or ErrCorruptSnapshot when the
// payload no longer matches its checksum.
func (d *Database) Load(kind Kind) ([]byte, error) {
	var payload []byte
	var sum string
	err := d.loadStmt.QueryRow(string(kind)).Scan(&payload, &sum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	if checksum(payload) != sum {
		return nil, fmt.Errorf("%w: %s", ErrCorruptSnapshot, kind)
	}
	return payload, nil
}

func (d *Database) Save(kind Kind, payload []byte) error {
	if _, err := d.saveStmt.Exec(string(kind), payload, checksum(payload), time.Now().UTC()); err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	return nil
}

// SavedAt reports when kind was last written. The zero time means never.
func (d *Database) SavedAt(kind Kind) (time.Time, error) {
	var at time.Time
	err := d.db.QueryRow(`SELECT saved_at FROM snapshots WHERE kind=?`, string(kind)).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	return at, err
}

// ---------------------------------------------------------------------------
// Catalog index
// ---------------------------------------------------------------------------

// IndexBooks replaces the catalog index with books in one transaction.
func (d *Database) IndexBooks(books []*Book) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM book_index`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO book_index(isbn_key,isbn,title,author,genre,search) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range books {
		search := fold(strings.Join([]string{b.Title, b.Author, b.Genre, b.ISBN}, " "))
		if _, err := stmt.Exec(b.Key(), b.ISBN, b.Title, b.Author, b.Genre, search); err != nil {
			return fmt.Errorf("index %s: %w", b.ISBN, err)
		}
	}
	return tx.Commit()
}

// SearchBooks returns the ISBNs whose title, author, genre or ISBN contain
// query, ignoring case and accents, ordered by title.
func (d *Database) SearchBooks(query string) ([]string, error) {
	q := fold(query)
	if q == "" {
		return []string{}, nil
	}
	pattern := "%" + likeEscaper.Replace(q) + "%"
	rows, err := d.db.Query(`SELECT isbn FROM book_index WHERE search LIKE ? ESCAPE '\' ORDER BY title`, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []string{}
	for rows.Next() {
		var isbn string
		if err := rows.Scan(&isbn); err != nil {
			return nil, err
		}
		results = append(results, isbn)
	}
	return results, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
