// Package ingest runs treaty documents through extraction and persistence,
// with per-item failure isolation for batch uploads.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coolbeans/treatysearch/pkg/extract"
	"github.com/coolbeans/treatysearch/pkg/treaty"
)

// RecordSink is the persistence surface ingestion writes to.
type RecordSink interface {
	Save(country string, record *treaty.Record) bool
}

// Item is one document queued for ingestion.
type Item struct {
	Country    string        `json:"country"`
	Filename   string        `json:"filename"`
	SourcePath string        `json:"source_path"`
	Pages      []treaty.Page `json:"pages"`
}

// ItemState records the outcome of ingesting a single item.
type ItemState struct {
	Country string `json:"country"`
	Status  string `json:"status"` // "ingested" or "failed"
	Error   string `json:"error,omitempty"`
}

// Report summarizes a batch ingestion run.
type Report struct {
	TotalAttempted int         `json:"total_attempted"`
	Succeeded      int         `json:"succeeded"`
	Failed         int         `json:"failed"`
	Entries        []ItemState `json:"entries"`
}

// Ingester extracts and persists treaty documents.
type Ingester struct {
	extractor *extract.Extractor
	sink      RecordSink
	log       zerolog.Logger
}

// New creates an Ingester writing to the given sink.
func New(sink RecordSink, log zerolog.Logger) *Ingester {
	return &Ingester{
		extractor: extract.NewExtractor(),
		sink:      sink,
		log:       log.With().Str("component", "ingest").Logger(),
	}
}

// IngestOne processes and persists a single document. On extraction failure
// no record is written.
func (ing *Ingester) IngestOne(item Item) (*treaty.Record, error) {
	record, err := ing.extractor.Process(item.Country, item.Filename, item.SourcePath, item.Pages)
	if err != nil {
		return nil, err
	}
	if !ing.sink.Save(item.Country, record) {
		return nil, fmt.Errorf("failed to persist record for %s", item.Country)
	}

	ing.log.Info().
		Str("country", item.Country).
		Str("file", item.Filename).
		Int("pages", record.TotalPages).
		Int("articles", len(record.Articles)).
		Msg("treaty ingested")

	return record, nil
}

// IngestAll processes items strictly in order. A failing item is recorded
// and skipped; it never aborts the remaining items.
func (ing *Ingester) IngestAll(items []Item) *Report {
	report := &Report{
		TotalAttempted: len(items),
		Entries:        make([]ItemState, 0, len(items)),
	}

	for _, item := range items {
		if _, err := ing.IngestOne(item); err != nil {
			ing.log.Warn().Err(err).Str("country", item.Country).Msg("batch item failed")
			report.Failed++
			report.Entries = append(report.Entries, ItemState{
				Country: item.Country,
				Status:  "failed",
				Error:   err.Error(),
			})
			continue
		}

		report.Succeeded++
		report.Entries = append(report.Entries, ItemState{
			Country: item.Country,
			Status:  "ingested",
		})
	}

	return report
}

// IngestFile reads a page-delimited text file and ingests it. When country
// is empty it is derived from the file name.
func (ing *Ingester) IngestFile(path, country string) (*treaty.Record, error) {
	if country == "" {
		country = CountryFromPath(path)
	}

	pages, err := ReadPagesFile(path)
	if err != nil {
		return nil, &extract.ExtractionError{Filename: filepath.Base(path), Reason: err.Error()}
	}

	return ing.IngestOne(Item{
		Country:    country,
		Filename:   filepath.Base(path),
		SourcePath: path,
		Pages:      pages,
	})
}

// ReadPagesFile splits a text file into pages on form-feed markers. The
// marker is kept at the end of each page's text so page estimation keeps
// working after the pages are re-joined.
func ReadPagesFile(path string) ([]treaty.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(string(data), "\f")
	pages := make([]treaty.Page, len(parts))
	for i, part := range parts {
		if i < len(parts)-1 {
			part += "\f"
		}
		pages[i] = treaty.Page{PageNumber: i + 1, Text: part}
	}
	return pages, nil
}

// CountryFromPath derives a country identifier from a file name, e.g.
// "inbox/Germany.txt" becomes "Germany".
func CountryFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
