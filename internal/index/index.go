// Package index caches decoded profile records in SQLite so that a rescan
// only decodes files whose size or modification time changed.
package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"profiledeck/internal/logging"
	"profiledeck/internal/profile"
)

// Index is a path-keyed cache of decoded records.
type Index struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// Open creates or opens the cache database at path.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	db.SetMaxOpenConns(1)

	idx := &Index{db: db, dbPath: path}
	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize index schema: %w", err)
	}
	logging.Get(logging.CategoryIndex).Info("index opened: %s", path)
	return idx, nil
}

// DefaultPath returns <user cache dir>/profiledeck/index.db.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profiledeck", "index.db"), nil
}

// Close closes the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

// Path returns the database file path.
func (x *Index) Path() string {
	return x.dbPath
}

func (x *Index) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		path TEXT PRIMARY KEY,
		mod_time INTEGER NOT NULL,
		size INTEGER NOT NULL,
		record_json TEXT NOT NULL,
		indexed_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_indexed ON records(indexed_at);
	`
	_, err := x.db.Exec(schema)
	return err
}

// Lookup returns the cached record for path when the file still has the
// given modification time and size.
func (x *Index) Lookup(path string, modTime time.Time, size int64) (profile.Record, bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var (
		storedMod  int64
		storedSize int64
		data       string
	)
	err := x.db.QueryRow(`SELECT mod_time, size, record_json FROM records WHERE path = ?`, path).
		Scan(&storedMod, &storedSize, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Record{}, false, nil
	}
	if err != nil {
		return profile.Record{}, false, fmt.Errorf("lookup %s: %w", path, err)
	}
	if storedMod != modTime.UnixNano() || storedSize != size {
		return profile.Record{}, false, nil
	}

	var rec profile.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return profile.Record{}, false, fmt.Errorf("decode cached %s: %w", path, err)
	}
	return rec, true, nil
}

// Store records rec as the decode result for path at modTime/size.
func (x *Index) Store(path string, modTime time.Time, size int64, rec profile.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	_, err = x.db.Exec(`
		INSERT INTO records (path, mod_time, size, record_json, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mod_time = excluded.mod_time,
			size = excluded.size,
			record_json = excluded.record_json,
			indexed_at = excluded.indexed_at`,
		path, modTime.UnixNano(), size, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store %s: %w", path, err)
	}
	return nil
}

// Forget drops the entry for path.
func (x *Index) Forget(path string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, err := x.db.Exec(`DELETE FROM records WHERE path = ?`, path)
	return err
}

// Prune drops every entry whose path is not in keep and returns how many
// rows were removed.
func (x *Index) Prune(keep []string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	tx, err := x.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TEMP TABLE IF NOT EXISTS keep_paths (path TEXT PRIMARY KEY)`); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`DELETE FROM keep_paths`); err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO keep_paths (path) VALUES (?)`)
	if err != nil {
		return 0, err
	}
	for _, p := range keep {
		if _, err := stmt.Exec(p); err != nil {
			stmt.Close()
			return 0, err
		}
	}
	stmt.Close()

	res, err := tx.Exec(`DELETE FROM records WHERE path NOT IN (SELECT path FROM keep_paths)`)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Get(logging.CategoryIndex).Debug("pruned %d stale entries", n)
	}
	return int(n), nil
}

// Len returns the number of cached entries.
func (x *Index) Len() (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var n int
	err := x.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}
