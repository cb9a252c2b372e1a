package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/treatysearch/pkg/treaty"
)

// memorySink collects saved records in memory.
type memorySink struct {
	records map[string]*treaty.Record
	fail    bool
}

func newMemorySink() *memorySink {
	return &memorySink{records: make(map[string]*treaty.Record)}
}

func (m *memorySink) Save(country string, record *treaty.Record) bool {
	if m.fail {
		return false
	}
	m.records[country] = record
	return true
}

func validPages(text string) []treaty.Page {
	return []treaty.Page{{PageNumber: 1, Text: text}}
}

func TestIngestOne(t *testing.T) {
	sink := newMemorySink()
	ingester := New(sink, zerolog.Nop())

	record, err := ingester.IngestOne(Item{
		Country:  "Germany",
		Filename: "germany.pdf",
		Pages:    validPages("제1조【인적 범위】\n이 협약은 양 체약국의 거주자에게 적용된다."),
	})
	require.NoError(t, err)

	assert.Len(t, record.Articles, 1)
	assert.Contains(t, sink.records, "Germany")
}

func TestIngestOnePersistenceFailure(t *testing.T) {
	sink := newMemorySink()
	sink.fail = true
	ingester := New(sink, zerolog.Nop())

	_, err := ingester.IngestOne(Item{
		Country:  "Germany",
		Filename: "germany.pdf",
		Pages:    validPages("제1조 이 협약은 양 체약국의 거주자에게 적용된다."),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist")
}

// One bad document in a batch is reported but does not abort the rest.
func TestIngestAllPartialFailure(t *testing.T) {
	sink := newMemorySink()
	ingester := New(sink, zerolog.Nop())

	items := []Item{
		{Country: "Germany", Filename: "germany.pdf", Pages: validPages("제1조 이 협약은 양 체약국의 거주자에게 적용된다.")},
		{Country: "France", Filename: "france.pdf", Pages: nil}, // unreadable
		{Country: "Japan", Filename: "japan.pdf", Pages: validPages("제1조 이 협약은 양 체약국의 거주자에게 적용된다.")},
	}

	report := ingester.IngestAll(items)

	assert.Equal(t, 3, report.TotalAttempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	require.Len(t, report.Entries, 3)
	assert.Equal(t, "ingested", report.Entries[0].Status)
	assert.Equal(t, "failed", report.Entries[1].Status)
	assert.Contains(t, report.Entries[1].Error, "france.pdf")
	assert.Equal(t, "ingested", report.Entries[2].Status)

	assert.Contains(t, sink.records, "Germany")
	assert.Contains(t, sink.records, "Japan")
	assert.NotContains(t, sink.records, "France")
}

func TestIngestAllEmptyBatch(t *testing.T) {
	ingester := New(newMemorySink(), zerolog.Nop())

	report := ingester.IngestAll(nil)
	assert.Equal(t, 0, report.TotalAttempted)
	assert.Empty(t, report.Entries)
}

func TestReadPagesFileSplitsOnFormFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Germany.txt")
	require.NoError(t, os.WriteFile(path, []byte("first page\fsecond page"), 0o644))

	pages, err := ReadPagesFile(path)
	require.NoError(t, err)

	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, "first page\f", pages[0].Text) // marker kept for page estimation
	assert.Equal(t, 2, pages[1].PageNumber)
	assert.Equal(t, "second page", pages[1].Text)
}

func TestIngestFileDerivesCountryFromName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Austria.txt")
	require.NoError(t, os.WriteFile(path, []byte("제1조 이 협약은 양 체약국의 거주자에게 적용된다."), 0o644))

	sink := newMemorySink()
	ingester := New(sink, zerolog.Nop())

	record, err := ingester.IngestFile(path, "")
	require.NoError(t, err)

	assert.Equal(t, "Austria", record.Country)
	assert.Equal(t, "Austria.txt", record.Filename)
	assert.Contains(t, sink.records, "Austria")
}

func TestIngestFileMissing(t *testing.T) {
	ingester := New(newMemorySink(), zerolog.Nop())

	_, err := ingester.IngestFile(filepath.Join(t.TempDir(), "nope.txt"), "")
	require.Error(t, err)
}

func TestCountryFromPath(t *testing.T) {
	assert.Equal(t, "Germany", CountryFromPath("/inbox/Germany.txt"))
	assert.Equal(t, "독일", CountryFromPath("독일.txt"))
	assert.Equal(t, "nested", CountryFromPath("a/b/nested.txt"))
}
