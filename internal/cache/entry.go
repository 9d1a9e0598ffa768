package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// errCorrupt marks a record that was read but is not a well-formed entry.
var errCorrupt = errors.New("corrupt cache record")

// Entry is the persisted record for a single key.
type Entry struct {
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"createdAt"`
	TTLMillis int64           `json:"ttlMillis"`
	ExpiresAt int64           `json:"expiresAt"`
}

func newEntry(key string, payload json.RawMessage, ttl time.Duration, now time.Time) Entry {
	created := now.UnixMilli()
	ttlMillis := ttl.Milliseconds()
	// Round partial milliseconds up so a positive TTL never expires on write.
	if time.Duration(ttlMillis)*time.Millisecond < ttl {
		ttlMillis++
	}
	return Entry{
		Key:       key,
		Payload:   payload,
		CreatedAt: created,
		TTLMillis: ttlMillis,
		ExpiresAt: created + ttlMillis,
	}
}

// encodeEntry serializes e without HTML escaping so payload bytes read back
// as they were stored.
func encodeEntry(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Expired reports whether the entry is past its expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return now.UnixMilli() >= e.ExpiresAt
}

func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if len(e.Payload) == 0 || e.ExpiresAt == 0 {
		return Entry{}, errCorrupt
	}
	return e, nil
}

func readEntry(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	return decodeEntry(data)
}
