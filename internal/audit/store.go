package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	filePrefix = "audit_logs_"
	fileSuffix = ".json"
	dateLayout = "2006-01-02"

	maxLineBytes = 4 << 20
)

// Store is the append-only, date-partitioned audit log.
type Store struct {
	dir string

	mu     sync.Mutex
	all    []Entry
	byID   map[string]int
	byTx   map[string][]int
	byCorr map[string][]int

	// Partition file currently open for appends.
	file     *os.File
	fileDate string
}

// Open creates dir if needed and replays every partition file in it.
//
// Lines that fail to parse or validate are skipped with a warning.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	s := &Store{dir: dir}
	s.resetIndexes()

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the partition directory.
func (s *Store) Dir() string {
	return s.dir
}

// Close flushes and closes the open partition file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeFile()
}

func (s *Store) closeFile() error {
	if s.file == nil {
		return nil
	}
	f := s.file
	s.file = nil
	s.fileDate = ""
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync audit partition: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close audit partition: %w", err)
	}
	return nil
}

// Save indexes e in memory and appends it to the partition of its UTC date.
//
// The entry is indexed before the append, so an append failure leaves it
// visible in memory until the next Open.
func (s *Store) Save(e Entry) error {
	e.Timestamp = e.Timestamp.UTC()
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Details == nil {
		e.Details = map[string]any{}
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry %s: %w", e.LogID, err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	s.index(e)

	f, err := s.partition(e.Timestamp.Format(dateLayout))
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append audit entry %s: %w", e.LogID, err)
	}
	return nil
}

// partition returns the append handle for date, rotating if needed.
// Caller must hold s.mu.
func (s *Store) partition(date string) (*os.File, error) {
	if s.file != nil && s.fileDate == date {
		return s.file, nil
	}
	if err := s.closeFile(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, filePrefix+date+fileSuffix)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit partition: %w", err)
	}
	s.file = f
	s.fileDate = date
	return f, nil
}

// index adds e to the flat list and every index. Caller must hold s.mu.
func (s *Store) index(e Entry) {
	i := len(s.all)
	s.all = append(s.all, e)
	s.byID[e.LogID] = i
	if e.TransactionID != "" {
		s.byTx[e.TransactionID] = append(s.byTx[e.TransactionID], i)
	}
	if e.CorrelationID != "" {
		s.byCorr[e.CorrelationID] = append(s.byCorr[e.CorrelationID], i)
	}
}

func (s *Store) resetIndexes() {
	s.all = nil
	s.byID = make(map[string]int)
	s.byTx = make(map[string][]int)
	s.byCorr = make(map[string][]int)
}

func (s *Store) load() error {
	names, err := s.partitionFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := s.loadFile(filepath.Join(s.dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// partitionFiles lists partition file names in ascending (date) order.
func (s *Store) partitionFiles() ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read audit dir: %w", err)
	}
	var names []string
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		names = append(names, name)
	}
	// os.ReadDir returns entries sorted by filename.
	return names, nil
}

func (s *Store) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audit partition: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			slog.Warn("skipping malformed audit line", "file", path, "line", lineNo, "error", err)
			continue
		}
		if err := e.Validate(); err != nil {
			slog.Warn("skipping invalid audit line", "file", path, "line", lineNo, "error", err)
			continue
		}
		e.Timestamp = e.Timestamp.UTC()
		if e.Details == nil {
			e.Details = map[string]any{}
		}
		s.index(e)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read audit partition %s: %w", path, err)
	}
	return nil
}

// partitionDate parses the date out of a partition file name.
func partitionDate(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
