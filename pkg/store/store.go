// Package store persists treaty records as JSON documents keyed by country,
// with a secondary index for enumeration and statistics.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/coolbeans/treatysearch/pkg/treaty"
)

const (
	indexFileName = "index.json"
	treatiesDir   = "treaties"
)

// IndexEntry records where a country's document lives and when it was last
// written.
type IndexEntry struct {
	Location  string    `json:"location"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats summarizes the store contents without loading full documents.
type Stats struct {
	TotalCountries int        `json:"total_countries"`
	Countries      []string   `json:"countries"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
}

// Store is a file-backed treaty record store. The index and the document set
// are kept consistent by the store itself; callers must not mutate the data
// directory directly. Concurrent writers from multiple processes are not
// safe under this design (last writer wins) — acceptable for a
// single-user-at-a-time tool.
type Store struct {
	mu    sync.RWMutex
	path  string
	index map[string]IndexEntry
	log   zerolog.Logger
}

// Open loads the store at the given directory, creating it if needed. A
// missing or unreadable index starts empty; documents on disk remain
// reachable through LoadAll.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(path, treatiesDir), 0o755); err != nil {
		return nil, err
	}

	s := &Store{
		path:  path,
		index: make(map[string]IndexEntry),
		log:   log.With().Str("component", "store").Logger(),
	}

	data, err := os.ReadFile(filepath.Join(path, indexFileName))
	if err == nil {
		if err := json.Unmarshal(data, &s.index); err != nil {
			s.log.Warn().Err(err).Msg("index file is unreadable, starting with an empty index")
			s.index = make(map[string]IndexEntry)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// Save serializes and writes the record for a country, stamping the
// processing time, then updates the index. Returns false on I/O failure,
// logging the cause. The document write is atomic: an interrupted write
// never leaves a truncated file in place of a valid record.
func (s *Store) Save(country string, record *treaty.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	record.Country = country
	record.Metadata.Country = country
	record.Metadata.ProcessedAt = now
	if record.Metadata.Version == "" {
		record.Metadata.Version = treaty.RecordVersion
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		s.log.Error().Err(err).Str("country", country).Msg("failed to serialize record")
		return false
	}

	location := documentFileName(country)
	if err := writeFileAtomic(filepath.Join(s.path, treatiesDir, location), data); err != nil {
		s.log.Error().Err(err).Str("country", country).Msg("failed to write record")
		return false
	}

	s.index[country] = IndexEntry{Location: location, UpdatedAt: now}
	if err := s.writeIndex(); err != nil {
		s.log.Error().Err(err).Str("country", country).Msg("failed to write index")
		return false
	}

	return true
}

// Load returns the stored record for a country. The second return value is
// false when no record exists; a missing country is an expected condition,
// not an error.
func (s *Store) Load(country string) (*treaty.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.index[country]
	if !ok {
		return nil, false
	}

	record, err := s.readDocument(entry.Location)
	if err != nil {
		s.log.Warn().Err(err).Str("country", country).Msg("stored record is unreadable")
		return nil, false
	}
	return record, true
}

// LoadAll returns every readable record keyed by country, scanning the
// document directory. Documents that fail to parse are skipped.
func (s *Store) LoadAll() map[string]*treaty.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make(map[string]*treaty.Record)

	entries, err := os.ReadDir(filepath.Join(s.path, treatiesDir))
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to list document directory")
		return records
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		record, err := s.readDocument(entry.Name())
		if err != nil {
			s.log.Warn().Err(err).Str("file", entry.Name()).Msg("skipping unreadable document")
			continue
		}
		records[record.Country] = record
	}

	return records
}

// ListCountries returns all indexed countries, alphabetically sorted.
func (s *Store) ListCountries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedCountries()
}

// Delete removes a country's document and its index entry. Returns false if
// the country is absent or removal fails.
func (s *Store) Delete(country string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[country]
	if !ok {
		return false
	}

	if err := os.Remove(filepath.Join(s.path, treatiesDir, entry.Location)); err != nil && !os.IsNotExist(err) {
		s.log.Error().Err(err).Str("country", country).Msg("failed to remove document")
		return false
	}

	delete(s.index, country)
	if err := s.writeIndex(); err != nil {
		s.log.Error().Err(err).Str("country", country).Msg("failed to write index")
		return false
	}

	return true
}

// Stats returns store-level statistics from the index alone.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		TotalCountries: len(s.index),
		Countries:      s.sortedCountries(),
	}

	for _, entry := range s.index {
		if stats.LastUpdated == nil || entry.UpdatedAt.After(*stats.LastUpdated) {
			t := entry.UpdatedAt
			stats.LastUpdated = &t
		}
	}

	return stats
}

// Path returns the store's root directory.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) sortedCountries() []string {
	countries := make([]string, 0, len(s.index))
	for country := range s.index {
		countries = append(countries, country)
	}
	sort.Strings(countries)
	return countries
}

func (s *Store) readDocument(location string) (*treaty.Record, error) {
	data, err := os.ReadFile(filepath.Join(s.path, treatiesDir, location))
	if err != nil {
		return nil, err
	}
	var record treaty.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Store) writeIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.path, indexFileName), data)
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// documentFileName maps a country identifier to a stable file name. Unicode
// letters and digits are kept as-is; anything else becomes an underscore.
func documentFileName(country string) string {
	var b strings.Builder
	for _, r := range country {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String() + ".json"
}
