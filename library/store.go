package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store keeps one snapshot per collection. Load returns nil, nil when the
// collection was never saved.
type Store interface {
	Load(kind Kind) ([]byte, error)
	Save(kind Kind, payload []byte) error
	Close() error
}

// SearchIndex is an external catalog index the manager keeps in step with
// the book collection.
type SearchIndex interface {
	IndexBooks(books []*Book) error
	SearchBooks(query string) ([]string, error)
}

// OpenStore opens the backend named by kind: "json" keeps one file per
// collection under dataDir, "sqlite" keeps snapshots and the search index in
// the database at dbPath.
func OpenStore(kind, dataDir, dbPath string) (Store, []Option, error) {
	switch kind {
	case "sqlite":
		db, err := NewDatabase(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return db, []Option{WithSearchIndex(db)}, nil
	case "json", "":
		fs, err := NewFileStore(dataDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", kind)
	}
}

// FileStore writes each collection to <dir>/<kind>.json.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Path(kind Kind) string {
	return filepath.Join(s.dir, string(kind)+".json")
}

func (s *FileStore) Load(kind Kind) ([]byte, error) {
	payload, err := os.ReadFile(s.Path(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	return payload, nil
}

// Save replaces the file through a temporary file and a rename.
func (s *FileStore) Save(kind Kind, payload []byte) error {
	tmp, err := os.CreateTemp(s.dir, string(kind)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", kind, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(kind)); err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// RecordProblem describes one stored record that could not be restored.
type RecordProblem struct {
	Kind   Kind
	Index  int
	Reason string
}

func (p RecordProblem) String() string {
	return fmt.Sprintf("%s[%d]: %s", p.Kind, p.Index, p.Reason)
}

// decodeRecords splits a JSON array into records, skipping elements that do
// not decode. A payload that is not an array at all is an error.
func decodeRecords[T any](kind Kind, payload []byte) ([]*T, []RecordProblem, error) {
	if len(payload) == 0 {
		return nil, nil, nil
	}
	var raw []jsoniter.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", kind, err)
	}

	var records []*T
	var skipped []RecordProblem
	for i, msg := range raw {
		rec := new(T)
		if err := json.Unmarshal(msg, rec); err != nil {
			skipped = append(skipped, RecordProblem{Kind: kind, Index: i, Reason: err.Error()})
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func encodeRecords[T any](records []*T) ([]byte, error) {
	if records == nil {
		records = []*T{}
	}
	return json.MarshalIndent(records, "", "  ")
}
