package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/treatysearch/pkg/treaty"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func sampleRecord(country string) *treaty.Record {
	return &treaty.Record{
		Country:    country,
		Filename:   country + ".pdf",
		SourcePath: "/uploads/" + country + ".pdf",
		TotalPages: 2,
		FullText:   "제1조【인적 범위】\n이 협약은 양 체약국의 거주자에게 적용된다.",
		Pages: []treaty.Page{
			{PageNumber: 1, Text: "제1조【인적 범위】"},
			{PageNumber: 2, Text: "이 협약은 양 체약국의 거주자에게 적용된다."},
		},
		Articles: []treaty.Article{
			{Number: "1", Title: "인적 범위", Content: "이 협약은 양 체약국의 거주자에게 적용된다.", Page: 1, Position: 0},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	original := sampleRecord("Japan")
	require.True(t, s.Save("Japan", original))

	loaded, ok := s.Load("Japan")
	require.True(t, ok)

	assert.Equal(t, original.Country, loaded.Country)
	assert.Equal(t, original.Filename, loaded.Filename)
	assert.Equal(t, original.SourcePath, loaded.SourcePath)
	assert.Equal(t, original.TotalPages, loaded.TotalPages)
	assert.Equal(t, original.FullText, loaded.FullText)
	assert.Equal(t, original.Pages, loaded.Pages)
	assert.Equal(t, original.Articles, loaded.Articles)

	// Save stamps the processing time.
	assert.False(t, loaded.Metadata.ProcessedAt.IsZero())
	assert.Equal(t, treaty.RecordVersion, loaded.Metadata.Version)
}

func TestLoadAbsentCountry(t *testing.T) {
	s := newTestStore(t)

	record, ok := s.Load("Atlantis")
	assert.False(t, ok)
	assert.Nil(t, record)
}

func TestSaveOverwritesWholeRecord(t *testing.T) {
	s := newTestStore(t)

	require.True(t, s.Save("Germany", sampleRecord("Germany")))

	replacement := sampleRecord("Germany")
	replacement.FullText = "개정 협약 전문"
	replacement.Articles = nil
	require.True(t, s.Save("Germany", replacement))

	loaded, ok := s.Load("Germany")
	require.True(t, ok)
	assert.Equal(t, "개정 협약 전문", loaded.FullText)
	assert.Empty(t, loaded.Articles)

	assert.Len(t, s.ListCountries(), 1)
}

func TestListCountriesSorted(t *testing.T) {
	s := newTestStore(t)

	for _, country := range []string{"Germany", "Austria", "France"} {
		require.True(t, s.Save(country, sampleRecord(country)))
	}

	assert.Equal(t, []string{"Austria", "France", "Germany"}, s.ListCountries())
}

func TestDeleteRemovesDocumentAndIndexEntry(t *testing.T) {
	s := newTestStore(t)

	require.True(t, s.Save("Japan", sampleRecord("Japan")))
	require.True(t, s.Save("France", sampleRecord("France")))

	before := s.Stats()
	require.Equal(t, 2, before.TotalCountries)

	require.True(t, s.Delete("Japan"))

	_, ok := s.Load("Japan")
	assert.False(t, ok)
	assert.NotContains(t, s.ListCountries(), "Japan")

	after := s.Stats()
	assert.Equal(t, before.TotalCountries-1, after.TotalCountries)
}

func TestDeleteAbsentCountry(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.Delete("Atlantis"))
}

func TestLoadAllSkipsUnparseableDocuments(t *testing.T) {
	s := newTestStore(t)

	require.True(t, s.Save("Japan", sampleRecord("Japan")))
	require.True(t, s.Save("France", sampleRecord("France")))

	// A corrupt file in the document directory must not break the batch.
	corrupt := filepath.Join(s.Path(), treatiesDir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))

	records := s.LoadAll()
	require.Len(t, records, 2)
	assert.Contains(t, records, "Japan")
	assert.Contains(t, records, "France")
}

func TestStats(t *testing.T) {
	s := newTestStore(t)

	empty := s.Stats()
	assert.Equal(t, 0, empty.TotalCountries)
	assert.Nil(t, empty.LastUpdated)

	start := time.Now().UTC().Add(-time.Second)
	require.True(t, s.Save("Japan", sampleRecord("Japan")))

	stats := s.Stats()
	assert.Equal(t, 1, stats.TotalCountries)
	assert.Equal(t, []string{"Japan"}, stats.Countries)
	require.NotNil(t, stats.LastUpdated)
	assert.True(t, stats.LastUpdated.After(start))
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)
	require.True(t, s.Save("Japan", sampleRecord("Japan")))

	reopened, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)

	loaded, ok := reopened.Load("Japan")
	require.True(t, ok)
	assert.Equal(t, "Japan", loaded.Country)
	assert.Equal(t, []string{"Japan"}, reopened.ListCountries())
}

func TestNonASCIICountryNames(t *testing.T) {
	s := newTestStore(t)

	require.True(t, s.Save("독일", sampleRecord("독일")))

	loaded, ok := s.Load("독일")
	require.True(t, ok)
	assert.Equal(t, "독일", loaded.Country)
	assert.Equal(t, []string{"독일"}, s.ListCountries())
}
