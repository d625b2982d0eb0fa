package audit

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testEntry(id string, ts time.Time, tx, corr string) Entry {
	return Entry{
		LogID:         id,
		Timestamp:     ts,
		EventType:     EventValidationStarted,
		TransactionID: tx,
		Source:        DefaultSource,
		CorrelationID: corr,
	}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	require.NoError(t, sc.Err())
	return n
}

func TestOpen_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "audit")
	s := openTestStore(t, dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, dir, s.Dir())
}

func TestStore_SaveWritesDailyPartition(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)

	require.NoError(t, s.Save(testEntry("a", baseTime, "ORD-1", "c1")))
	require.NoError(t, s.Save(testEntry("b", baseTime.Add(time.Hour), "ORD-1", "c1")))
	require.NoError(t, s.Save(testEntry("c", baseTime.Add(24*time.Hour), "ORD-2", "c2")))
	require.NoError(t, s.Close())

	assert.Equal(t, 2, countLines(t, filepath.Join(dir, "audit_logs_2025-03-10.json")))
	assert.Equal(t, 1, countLines(t, filepath.Join(dir, "audit_logs_2025-03-11.json")))
}

func TestStore_PartitionUsesUTCDate(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)

	tokyo := time.FixedZone("JST", 9*3600)
	// 2025-03-11 08:00 in Tokyo is 2025-03-10 23:00 UTC
	require.NoError(t, s.Save(testEntry("a", time.Date(2025, 3, 11, 8, 0, 0, 0, tokyo), "", "")))
	require.NoError(t, s.Close())

	_, err := os.Stat(filepath.Join(dir, "audit_logs_2025-03-10.json"))
	assert.NoError(t, err)

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, time.UTC, got.Timestamp.Location())
}

func TestStore_RoundTripAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	const n = 25
	for i := 0; i < n; i++ {
		e := testEntry(fmt.Sprintf("log-%02d", i), baseTime.Add(time.Duration(i)*6*time.Hour), "ORD-RT", "corr")
		e.Details = map[string]any{"i": i}
		require.NoError(t, s.Save(e))
	}
	require.NoError(t, s.Close())

	reopened := openTestStore(t, dir)
	assert.Equal(t, n, reopened.Len())

	trail := reopened.ByTransaction("ORD-RT")
	require.Len(t, trail, n)
	for i, e := range trail {
		assert.Equal(t, fmt.Sprintf("log-%02d", i), e.LogID, "file order then line order")
		assert.Equal(t, float64(i), e.Details["i"])
	}
	assert.Len(t, reopened.ByCorrelation("corr"), n)
}

func TestStore_ByCorrelationReturnsExactlyTheGroup(t *testing.T) {
	s := openTestStore(t, t.TempDir())

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Save(testEntry(fmt.Sprintf("in-%d", i), baseTime.Add(time.Duration(i)*time.Second), "ORD-1", "shared")))
	}
	require.NoError(t, s.Save(testEntry("out-1", baseTime, "ORD-1", "other")))
	require.NoError(t, s.Save(testEntry("out-2", baseTime, "ORD-2", "")))

	group := s.ByCorrelation("shared")
	require.Len(t, group, 5)
	for _, e := range group {
		assert.Equal(t, "shared", e.CorrelationID)
	}
	assert.Empty(t, s.ByCorrelation("missing"))
	assert.Len(t, s.ByTransaction("ORD-1"), 6)
}

func TestStore_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	content := `{"log_id":"ok-1","timestamp":"2025-03-10T09:00:00Z","event_type":"system_startup","details":{},"source":"cli"}
not json at all

{"log_id":"bad-type","timestamp":"2025-03-10T09:00:01Z","event_type":"made_up","details":{},"source":"cli"}
{"log_id":"ok-2","timestamp":"2025-03-10T09:00:02Z","event_type":"system_shutdown","source":"cli"}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "audit_logs_2025-03-10.json"), []byte(content), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	s := openTestStore(t, dir)

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "ok-1", all[0].LogID)
	assert.Equal(t, "ok-2", all[1].LogID)
	assert.NotNil(t, all[1].Details)
}

func TestStore_SaveRejectsInvalidEntries(t *testing.T) {
	s := openTestStore(t, t.TempDir())

	tests := []struct {
		name  string
		entry Entry
	}{
		{"missing id", Entry{Timestamp: baseTime, EventType: EventSystemStartup, Source: "x"}},
		{"missing timestamp", Entry{LogID: "a", EventType: EventSystemStartup, Source: "x"}},
		{"unknown event", Entry{LogID: "a", Timestamp: baseTime, EventType: "nope", Source: "x"}},
		{"unknown decision", Entry{LogID: "a", Timestamp: baseTime, EventType: EventSystemStartup, Decision: "maybe", Source: "x"}},
		{"missing source", Entry{LogID: "a", Timestamp: baseTime, EventType: EventSystemStartup}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Save(tt.entry)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidEntry)
		})
	}
	assert.Equal(t, 0, s.Len())
}

func TestStore_AppendsToExistingPartition(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Save(testEntry("first", baseTime, "ORD-1", "")))
	require.NoError(t, s1.Close())

	s2 := openTestStore(t, dir)
	require.NoError(t, s2.Save(testEntry("second", baseTime.Add(time.Minute), "ORD-1", "")))
	require.NoError(t, s2.Close())

	assert.Equal(t, 2, countLines(t, filepath.Join(dir, "audit_logs_2025-03-10.json")))
}

func TestStore_ConcurrentSaves(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				id := fmt.Sprintf("g%d-%d", g, i)
				_ = s.Save(testEntry(id, baseTime.Add(time.Duration(i)*time.Millisecond), fmt.Sprintf("ORD-%d", g), id))
			}
		}(g)
	}
	wg.Wait()
	require.NoError(t, s.Close())

	assert.Equal(t, 200, s.Len())
	assert.Equal(t, 200, countLines(t, filepath.Join(dir, "audit_logs_2025-03-10.json")))
	for g := 0; g < 8; g++ {
		assert.Len(t, s.ByTransaction(fmt.Sprintf("ORD-%d", g)), 25)
	}
}
