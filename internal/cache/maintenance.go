package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Stats describes the contents of the cache directory.
type Stats struct {
	Dir            string `json:"dir"`
	ValidEntries   int    `json:"validEntries"`
	ExpiredEntries int    `json:"expiredEntries"`
	CorruptEntries int    `json:"corruptEntries"`
	TotalBytes     int64  `json:"totalBytes"`
}

// Clear removes every cache record and returns how many were removed.
func (s *Store) Clear() int {
	var removed int
	for _, e := range s.records() {
		if s.remove(filepath.Join(s.dir, e.Name())) {
			removed++
		}
	}
	return removed
}

// SweepExpired removes every record that has expired or cannot be decoded,
// and returns how many were removed. Expiry is judged against the time the
// sweep started.
func (s *Store) SweepExpired() int {
	now := s.now()
	var removed int
	for _, e := range s.records() {
		path := filepath.Join(s.dir, e.Name())
		entry, err := readEntry(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err == nil && !entry.Expired(now) {
			continue
		}
		if s.remove(path) {
			removed++
		}
	}
	if removed > 0 {
		s.log.Debug("swept cache", zap.Int("removed", removed))
	}
	return removed
}

// Stats reports entry counts and disk usage. Records that fail to decode are
// counted as both expired and corrupt; records that cannot be read at all are
// skipped.
func (s *Store) Stats() Stats {
	stats := Stats{Dir: s.dir}
	now := s.now()
	for _, e := range s.records() {
		info, err := e.Info()
		if err != nil {
			continue
		}
		entry, err := readEntry(filepath.Join(s.dir, e.Name()))
		switch {
		case errors.Is(err, errCorrupt):
			stats.CorruptEntries++
			stats.ExpiredEntries++
		case err != nil:
			continue
		case entry.Expired(now):
			stats.ExpiredEntries++
		default:
			stats.ValidEntries++
		}
		stats.TotalBytes += info.Size()
	}
	return stats
}

// records lists the cache record files in the root directory.
func (s *Store) records() []fs.DirEntry {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("reading cache directory", zap.String("dir", s.dir), zap.Error(err))
		}
		return nil
	}
	out := entries[:0]
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != recordExt || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, e)
	}
	return out
}
