package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func countRecords(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	n := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			n++
		}
	}
	return n
}

func TestStore_SetGet(t *testing.T) {
	s := New(t.TempDir())

	key := "stores_category=food&lat=1"
	value := json.RawMessage(`[{"name":"Pizza Place","distance":120}]`)

	// Miss before set
	if _, ok := s.Get(key); ok {
		t.Error("Expected cache miss before set")
	}

	s.Set(key, value, time.Hour)

	got, ok := s.Get(key)
	if !ok {
		t.Fatal("Expected cache hit after set")
	}
	if string(got) != string(value) {
		t.Errorf("Get = %s, want %s", got, value)
	}
}

func TestStore_SetOverwrites(t *testing.T) {
	s := New(t.TempDir())

	s.Set("k", json.RawMessage(`{"v":1}`), time.Hour)
	s.Set("k", json.RawMessage(`{"v":2}`), time.Hour)

	got, ok := s.Get("k")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if string(got) != `{"v":2}` {
		t.Errorf("Get = %s, want %s", got, `{"v":2}`)
	}
	if n := countRecords(t, s.Dir()); n != 1 {
		t.Errorf("records = %d, want 1", n)
	}
}

func TestStore_Expiry(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	s.Set("short", json.RawMessage(`"data"`), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, ok := s.Get("short"); ok {
		t.Error("Expected cache miss after TTL expiration")
	}
	if _, err := os.Stat(filepath.Join(dir, FileName("short"))); !os.IsNotExist(err) {
		t.Errorf("Expired record should be removed on read, stat err = %v", err)
	}
}

func TestStore_ExpiryBoundary(t *testing.T) {
	clock := newFakeClock()
	s := New(t.TempDir(), WithClock(clock.Now))

	s.Set("k", json.RawMessage(`1`), time.Second)

	clock.Advance(999 * time.Millisecond)
	if _, ok := s.Get("k"); !ok {
		t.Fatal("Expected hit just before expiry")
	}

	clock.Advance(time.Millisecond)
	if _, ok := s.Get("k"); ok {
		t.Error("Expected miss at expiry")
	}
}

func TestStore_GetDoesNotExtendExpiry(t *testing.T) {
	clock := newFakeClock()
	dir := t.TempDir()
	s := New(dir, WithClock(clock.Now))

	s.Set("k", json.RawMessage(`1`), time.Minute)
	before, err := os.ReadFile(filepath.Join(dir, FileName("k")))
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}

	clock.Advance(30 * time.Second)
	s.Get("k")

	after, err := os.ReadFile(filepath.Join(dir, FileName("k")))
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(before) != string(after) {
		t.Error("Get should not modify the stored record")
	}
}

func TestStore_RecordLayout(t *testing.T) {
	clock := newFakeClock()
	dir := t.TempDir()
	s := New(dir, WithClock(clock.Now))

	s.Set("geo_q=Berlin", json.RawMessage(`{"lat":52.5}`), 5*time.Second)

	data, err := os.ReadFile(filepath.Join(dir, FileName("geo_q=Berlin")))
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	created := clock.Now().UnixMilli()
	if e.Key != "geo_q=Berlin" {
		t.Errorf("Key = %q, want %q", e.Key, "geo_q=Berlin")
	}
	if e.CreatedAt != created {
		t.Errorf("CreatedAt = %d, want %d", e.CreatedAt, created)
	}
	if e.TTLMillis != 5000 {
		t.Errorf("TTLMillis = %d, want 5000", e.TTLMillis)
	}
	if e.ExpiresAt != created+5000 {
		t.Errorf("ExpiresAt = %d, want %d", e.ExpiresAt, created+5000)
	}
}

func TestStore_PayloadBytesPreserved(t *testing.T) {
	s := New(t.TempDir())

	value := json.RawMessage(`{"name":"Fish <b>&</b> Chips"}`)
	s.Set("k", value, time.Hour)

	got, ok := s.Get("k")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if string(got) != string(value) {
		t.Errorf("Get = %s, want %s", got, value)
	}
}

func TestStore_SubMillisecondTTL(t *testing.T) {
	clock := newFakeClock()
	s := New(t.TempDir(), WithClock(clock.Now))

	s.Set("k", json.RawMessage(`1`), 500*time.Microsecond)
	if _, ok := s.Get("k"); !ok {
		t.Fatal("Expected hit right after set with a sub-millisecond TTL")
	}

	clock.Advance(time.Millisecond)
	if _, ok := s.Get("k"); ok {
		t.Error("Expected miss one millisecond later")
	}
}

func TestNewEntry_TTLRounding(t *testing.T) {
	now := time.UnixMilli(1_000)
	tests := []struct {
		ttl  time.Duration
		want int64
	}{
		{0, 0},
		{-time.Second, -1000},
		{time.Nanosecond, 1},
		{1500 * time.Microsecond, 2},
		{2 * time.Millisecond, 2},
	}
	for _, tt := range tests {
		e := newEntry("k", json.RawMessage(`1`), tt.ttl, now)
		if e.TTLMillis != tt.want {
			t.Errorf("newEntry(%v).TTLMillis = %d, want %d", tt.ttl, e.TTLMillis, tt.want)
		}
		if e.ExpiresAt != 1_000+tt.want {
			t.Errorf("newEntry(%v).ExpiresAt = %d, want %d", tt.ttl, e.ExpiresAt, 1_000+tt.want)
		}
	}
}

func TestStore_Delete(t *testing.T) {
	s := New(t.TempDir())

	s.Set("k", json.RawMessage(`true`), time.Hour)
	s.Delete("k")
	if _, ok := s.Get("k"); ok {
		t.Error("Expected miss after delete")
	}

	// Deleting a missing key is a no-op.
	s.Delete("k")
	s.Delete("never-set")
}

func TestStore_CorruptRecord(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	path := filepath.Join(dir, FileName("broken"))
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	if _, ok := s.Get("broken"); ok {
		t.Error("Corrupt record should be a miss")
	}

	if n := s.SweepExpired(); n != 1 {
		t.Errorf("SweepExpired = %d, want 1", n)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Corrupt record should be removed by sweep, stat err = %v", err)
	}
}

func TestStore_WellFormedJSONButNotEntry(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	path := filepath.Join(dir, FileName("odd"))
	if err := os.WriteFile(path, []byte(`{"hello":"world"}`), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if _, ok := s.Get("odd"); ok {
		t.Error("Record without entry fields should be a miss")
	}
}

func TestStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	s := New(dir)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("New should create %s: %v", dir, err)
	}

	// Removing the root after construction is recovered on the next write.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("RemoveAll error: %v", err)
	}
	s.Set("k", json.RawMessage(`1`), time.Hour)
	if _, ok := s.Get("k"); !ok {
		t.Error("Set should recreate the cache directory")
	}

	// A second store on the same root is fine.
	_ = New(dir)
}

func TestStore_UnwritableRoot(t *testing.T) {
	// A regular file where the directory should be makes every write fail.
	parent := t.TempDir()
	root := filepath.Join(parent, "file")
	if err := os.WriteFile(root, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	s := New(root)

	s.Set("k", json.RawMessage(`1`), time.Hour)
	if _, ok := s.Get("k"); ok {
		t.Error("Expected miss when the root is unusable")
	}
	s.Delete("k")
	if n := s.Clear(); n != 0 {
		t.Errorf("Clear = %d, want 0", n)
	}
	if n := s.SweepExpired(); n != 0 {
		t.Errorf("SweepExpired = %d, want 0", n)
	}
	if stats := s.Stats(); stats.ValidEntries != 0 || stats.TotalBytes != 0 {
		t.Errorf("Stats = %+v, want empty", stats)
	}
}

func TestStore_InvalidPayloadIsDropped(t *testing.T) {
	s := New(t.TempDir())

	s.Set("k", json.RawMessage(`{not json`), time.Hour)
	if _, ok := s.Get("k"); ok {
		t.Error("Invalid payload should not be stored")
	}
}

func TestStore_Clear(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	for i := 0; i < 5; i++ {
		s.Set(string(rune('a'+i)), json.RawMessage(`"data"`), time.Hour)
	}
	if n := countRecords(t, dir); n != 5 {
		t.Fatalf("Expected 5 cache records, got %d", n)
	}

	// Foreign files are left alone.
	notes := filepath.Join(dir, "README.txt")
	if err := os.WriteFile(notes, []byte("keep"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	if n := s.Clear(); n != 5 {
		t.Errorf("Clear = %d, want 5", n)
	}
	if n := countRecords(t, dir); n != 0 {
		t.Errorf("Expected 0 cache records after clear, got %d", n)
	}
	if n := s.Clear(); n != 0 {
		t.Errorf("second Clear = %d, want 0", n)
	}
	if _, err := os.Stat(notes); err != nil {
		t.Errorf("Clear removed a non-record file: %v", err)
	}
}

func TestStore_SweepExpired(t *testing.T) {
	clock := newFakeClock()
	s := New(t.TempDir(), WithClock(clock.Now))

	for _, k := range []string{"a", "b", "c", "d"} {
		s.Set(k, json.RawMessage(`1`), time.Hour)
	}
	for _, k := range []string{"x", "y", "z"} {
		s.Set(k, json.RawMessage(`1`), time.Second)
	}
	clock.Advance(2 * time.Second)

	if n := s.SweepExpired(); n != 3 {
		t.Errorf("SweepExpired = %d, want 3", n)
	}
	for _, k := range []string{"a", "b", "c", "d"} {
		if _, ok := s.Get(k); !ok {
			t.Errorf("Get(%q) should still hit after sweep", k)
		}
	}
	if n := s.SweepExpired(); n != 0 {
		t.Errorf("second SweepExpired = %d, want 0", n)
	}
}

func TestStore_Stats(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	stats := s.Stats()
	if stats.ValidEntries != 0 || stats.ExpiredEntries != 0 {
		t.Errorf("empty Stats = %+v", stats)
	}

	for _, k := range []string{"v1", "v2", "v3"} {
		s.Set(k, json.RawMessage(`{"ok":true}`), time.Hour)
	}
	for _, k := range []string{"e1", "e2"} {
		s.Set(k, json.RawMessage(`{"ok":false}`), time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	stats = s.Stats()
	if stats.ValidEntries != 3 {
		t.Errorf("ValidEntries = %d, want 3", stats.ValidEntries)
	}
	if stats.ExpiredEntries != 2 {
		t.Errorf("ExpiredEntries = %d, want 2", stats.ExpiredEntries)
	}
	if stats.TotalBytes <= 0 {
		t.Error("TotalBytes should be > 0")
	}
	if stats.Dir != dir {
		t.Errorf("Dir = %q, want %q", stats.Dir, dir)
	}
}

func TestStore_StatsCountsCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	s.Set("good", json.RawMessage(`1`), time.Hour)
	if err := os.WriteFile(filepath.Join(dir, FileName("bad")), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	stats := s.Stats()
	if stats.ValidEntries != 1 {
		t.Errorf("ValidEntries = %d, want 1", stats.ValidEntries)
	}
	if stats.CorruptEntries != 1 {
		t.Errorf("CorruptEntries = %d, want 1", stats.CorruptEntries)
	}
	if stats.ExpiredEntries != 1 {
		t.Errorf("ExpiredEntries = %d, want 1", stats.ExpiredEntries)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := DeriveKey("stores", map[string]any{"id": i % 4})
			s.Set(key, json.RawMessage(`{"i":1}`), time.Hour)
			s.Get(key)
		}(i)
	}
	wg.Wait()

	if stats := s.Stats(); stats.ValidEntries != 4 || stats.CorruptEntries != 0 {
		t.Errorf("Stats = %+v, want 4 valid and no corrupt records", stats)
	}
}

func TestStore_ResolveTTL(t *testing.T) {
	s := New(t.TempDir(), WithPolicy(Policy{
		Default:    2 * time.Minute,
		Categories: map[string]time.Duration{"food": time.Minute},
	}))
	if got := s.ResolveTTL("food"); got != time.Minute {
		t.Errorf("ResolveTTL(food) = %v, want %v", got, time.Minute)
	}
	if got := s.ResolveTTL("other"); got != 2*time.Minute {
		t.Errorf("ResolveTTL(other) = %v, want %v", got, 2*time.Minute)
	}
}

func TestDefaultDir_XDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	dir, err := DefaultDir()
	if err != nil {
		t.Fatalf("DefaultDir error: %v", err)
	}
	if dir != "/tmp/xdg-cache/dealcache" {
		t.Errorf("DefaultDir = %q, want %q", dir, "/tmp/xdg-cache/dealcache")
	}
}
