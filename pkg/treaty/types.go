// Package treaty defines the data model for stored tax treaty documents.
package treaty

import "time"

// RecordVersion is stamped into the metadata of every record written by the
// current extractor. Bump when the persisted shape changes.
const RecordVersion = "1.0.0"

// NoTitle is the sentinel title used when no heading title could be extracted
// for an article.
const NoTitle = "(no title)"

// Page holds the raw text of a single source page.
type Page struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// Article is one detected section of a treaty, delimited by a recognized
// article heading.
type Article struct {
	// Number is the article ordinal as it appears in the text, e.g. "1",
	// "12" or "10-2" for sub-articles.
	Number string `json:"number"`

	// Title is the best-effort extracted heading title, or NoTitle.
	Title string `json:"title"`

	// Content is the text between this article's heading and the next one.
	Content string `json:"content"`

	// Page is a best-effort page estimate derived from page-break markers.
	Page int `json:"page"`

	// Position is the byte offset of the heading within the record's full
	// text. Used for document ordering only; not stable across
	// re-extractions of different text.
	Position int `json:"position"`
}

// Metadata carries provenance information for a record.
type Metadata struct {
	Country     string    `json:"country"`
	ProcessedAt time.Time `json:"processed_at"`
	Version     string    `json:"version"`
}

// Record is the persisted representation of one country's treaty document.
type Record struct {
	Country    string    `json:"country"`
	Filename   string    `json:"filename"`
	SourcePath string    `json:"source_path"`
	TotalPages int       `json:"total_pages"`
	FullText   string    `json:"full_text"`
	Pages      []Page    `json:"pages"`
	Articles   []Article `json:"articles"`
	Metadata   Metadata  `json:"metadata"`
}
