package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PurgeReport summarises one Purge call.
type PurgeReport struct {
	EntriesRemoved int      `json:"entries_removed"`
	FilesDeleted   int      `json:"files_deleted"`
	DeletedFiles   []string `json:"deleted_files"`
}

// Purge drops every in-memory entry older than before and deletes partition
// files whose date is strictly before the UTC date of before.
//
// Files are never rewritten: a partition for the cutoff day keeps its older
// entries on disk even though they are gone from memory.
func (s *Store) Purge(before time.Time) (PurgeReport, error) {
	before = before.UTC()
	report := PurgeReport{DeletedFiles: []string{}}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.all[:0:0]
	for _, e := range s.all {
		if e.Timestamp.Before(before) {
			report.EntriesRemoved++
			continue
		}
		kept = append(kept, e)
	}
	s.resetIndexes()
	for _, e := range kept {
		s.index(e)
	}

	names, err := s.partitionFiles()
	if err != nil {
		return report, err
	}
	y, m, d := before.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	for _, name := range names {
		date, ok := partitionDate(name)
		if !ok || !date.Before(cutoff) {
			continue
		}
		if s.file != nil && s.fileDate == date.Format(dateLayout) {
			if err := s.closeFile(); err != nil {
				return report, err
			}
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return report, fmt.Errorf("delete audit partition %s: %w", name, err)
		}
		report.FilesDeleted++
		report.DeletedFiles = append(report.DeletedFiles, name)
	}
	return report, nil
}
