package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
)

const recordExt = ".json"

// Store is a filesystem-backed cache rooted at a single directory.
// It is safe for concurrent use; see the package docs for its guarantees.
type Store struct {
	dir    string
	log    *zap.Logger
	now    func() time.Time
	policy Policy
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for swallowed storage failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPolicy sets the TTL policy used by ResolveTTL.
func WithPolicy(p Policy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// New creates a Store rooted at dir. If dir is empty, the default cache
// directory is used. The directory is created if needed; failure to create
// it is logged, not returned.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		log:    zap.NewNop(),
		now:    time.Now,
		policy: DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dir == "" {
		d, err := DefaultDir()
		if err != nil {
			d = filepath.Join(os.TempDir(), "dealcache")
			s.log.Warn("falling back to temp cache directory", zap.String("dir", d), zap.Error(err))
		}
		s.dir = d
	}
	s.ensureDir()
	return s
}

// Dir returns the cache root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Get returns the payload stored under key. It reports false when the key is
// missing, expired, or its record cannot be read. Expired records are removed.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	path := s.entryPath(key)
	e, err := readEntry(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if e.Key != key {
		s.log.Debug("cache key mismatch", zap.String("key", key), zap.String("stored", e.Key))
		return nil, false
	}
	if e.Expired(s.now()) {
		s.remove(path)
		return nil, false
	}
	return e.Payload, true
}

// Has reports whether an unexpired entry exists for key.
func (s *Store) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores payload under key for ttl, replacing any existing entry.
// Failures are logged and otherwise ignored.
func (s *Store) Set(key string, payload json.RawMessage, ttl time.Duration) {
	if err := s.write(key, payload, ttl); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes the entry for key. Missing entries are ignored.
func (s *Store) Delete(key string) {
	s.remove(s.entryPath(key))
}

// ResolveTTL returns the lifetime configured for a data category.
func (s *Store) ResolveTTL(category string) time.Duration {
	return s.policy.Resolve(category)
}

func (s *Store) write(key string, payload json.RawMessage, ttl time.Duration) error {
	data, err := encodeEntry(newEntry(key, payload, ttl, s.now()))
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	s.ensureDir()

	// Write beside the target and rename so readers never see a partial record.
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.entryPath(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing cache record: %w", err)
	}
	return nil
}

// ensureDir creates the root directory. It is idempotent and safe to call
// concurrently.
func (s *Store) ensureDir() {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.log.Warn("creating cache directory", zap.String("dir", s.dir), zap.Error(err))
	}
}

// remove deletes a record file, reporting whether it was removed.
func (s *Store) remove(path string) bool {
	if err := os.Remove(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("removing cache record", zap.String("path", path), zap.Error(err))
		}
		return false
	}
	return true
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.dir, FileName(key))
}

// DefaultDir returns the platform-appropriate cache directory.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "dealcache"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "dealcache"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "dealcache", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "dealcache", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "dealcache"), nil
	}
}
