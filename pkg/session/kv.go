package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/config"
)

// KV is the persistent key-value store behind a session. Reads must be
// synchronous so hydration never waits on the network.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// OpenKV builds the backend selected by cfg.
func OpenKV(cfg *config.Config) (KV, error) {
	switch cfg.SessionBackend {
	case config.BackendFile:
		return NewFileKV(cfg.SessionFile)
	case config.BackendSQLite:
		return NewSQLiteKV(cfg.SessionDSN)
	case config.BackendMemory:
		return NewMemoryKV(), nil
	}
	return nil, fmt.Errorf("session: unknown backend %q", cfg.SessionBackend)
}

// CloseKV releases backends that hold resources.
func CloseKV(kv KV) error {
	if c, ok := kv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// FileKV keeps all keys in one JSON document, rewritten atomically.
type FileKV struct {
	path string
	mu   sync.Mutex
}

func NewFileKV(path string) (*FileKV, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("session: creating %s: %w", dir, err)
		}
	}
	return &FileKV{path: path}, nil
}

func (f *FileKV) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := entries[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

func (f *FileKV) Set(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		// unreadable document: start over rather than refuse the write
		entries = map[string]string{}
	}
	entries[key] = string(value)
	return atomicWriteFileJSON(f.path, entries)
}

func (f *FileKV) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		entries = map[string]string{}
	}
	if _, ok := entries[key]; !ok && err == nil {
		return nil
	}
	delete(entries, key)
	return atomicWriteFileJSON(f.path, entries)
}

func (f *FileKV) load() (map[string]string, error) {
	entries := map[string]string{}
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("session: decoding %s: %w", f.path, err)
	}
	if entries == nil {
		entries = map[string]string{}
	}
	return entries, nil
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	tempFile := filePath + ".tmp"
	f, err := os.OpenFile(tempFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

// SQLiteKV stores keys in a single sqlite table.
type SQLiteKV struct {
	db *sql.DB
}

func NewSQLiteKV(dsn string) (*SQLiteKV, error) {
	if dir := sqliteDir(dsn); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("session: creating %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection failed: %w", err)
	}
	// one connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping failed: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS session_kv (key TEXT PRIMARY KEY, value BLOB NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: creating table: %w", err)
	}
	return &SQLiteKV{db: db}, nil
}

// sqliteDir is the directory a plain database path lives in. URI and
// in-memory DSNs are left to the driver.
func sqliteDir(dsn string) string {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return ""
	}
	if dir := filepath.Dir(dsn); dir != "." {
		return dir
	}
	return ""
}

func (s *SQLiteKV) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM session_kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *SQLiteKV) Set(key string, value []byte) error {
	_, err := s.db.Exec(`INSERT INTO session_kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *SQLiteKV) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM session_kv WHERE key = ?`, key)
	return err
}

func (s *SQLiteKV) Close() error {
	return s.db.Close()
}

// MemoryKV is an in-process store. The Fail* fields inject errors for tests.
type MemoryKV struct {
	mu         sync.Mutex
	data       map[string][]byte
	FailGet    error
	FailSet    error
	FailDelete error
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGet != nil {
		return nil, false, m.FailGet
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSet != nil {
		return m.FailSet
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete != nil {
		return m.FailDelete
	}
	delete(m.data, key)
	return nil
}

// Len reports how many keys are stored.
func (m *MemoryKV) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
