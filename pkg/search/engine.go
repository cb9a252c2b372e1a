// Package search provides keyword search over stored treaty records, with
// context-windowed highlighted excerpts.
package search

import (
	"sort"
	"strings"

	"github.com/coolbeans/treatysearch/pkg/treaty"
)

const (
	// contextRadius is the number of bytes of surrounding text kept on each
	// side of a keyword match.
	contextRadius = 100

	// fallbackLength bounds the excerpt used when no occurrence can be
	// located in the content (title-only matches).
	fallbackLength = 200

	// emphasisMarker wraps keyword occurrences inside highlighted excerpts.
	// Consumers render their own markup from it.
	emphasisMarker = "**"

	ellipsis = "…"
)

// Match types.
const (
	MatchTypeArticle  = "article"
	MatchTypeFullText = "full_text"
)

// RecordSource is the persistence surface the engine reads from.
type RecordSource interface {
	Load(country string) (*treaty.Record, bool)
	ListCountries() []string
}

// Options controls the scope of a search.
type Options struct {
	// Countries restricts the search to the given countries. Empty means
	// every country known to the store.
	Countries []string

	// InArticles enables article-level matching against titles and content.
	InArticles bool

	// InFullText enables scanning the full document text for every
	// occurrence of the keyword.
	InFullText bool
}

// DefaultOptions searches articles only, across all countries.
func DefaultOptions() Options {
	return Options{InArticles: true}
}

// Match is a single keyword hit within one country's treaty.
type Match struct {
	Type          string `json:"type"`
	ArticleNumber string `json:"article_number,omitempty"`
	ArticleTitle  string `json:"article_title,omitempty"`
	Content       string `json:"content,omitempty"`
	Highlighted   string `json:"highlighted,omitempty"`
	Page          int    `json:"page,omitempty"`
	Position      int    `json:"position,omitempty"`
}

// Result aggregates the matches for one country.
type Result struct {
	Country    string  `json:"country"`
	Filename   string  `json:"filename"`
	TotalPages int     `json:"total_pages"`
	MatchCount int     `json:"match_count"`
	Matches    []Match `json:"matches"`
}

// Engine searches treaty records. It holds no per-query state: the same
// keyword and options always yield the same output for the same store
// contents.
type Engine struct {
	source RecordSource
}

// NewEngine creates a search engine reading from the given source.
func NewEngine(source RecordSource) *Engine {
	return &Engine{source: source}
}

// Search runs a case-insensitive keyword search over the selected countries
// and returns one result per country with at least one match, sorted
// alphabetically by country name.
func (e *Engine) Search(keyword string, opts Options) []Result {
	countries := opts.Countries
	if len(countries) == 0 {
		countries = e.source.ListCountries()
	}

	results := make([]Result, 0)

	for _, country := range countries {
		record, ok := e.source.Load(country)
		if !ok {
			continue
		}

		var matches []Match
		if opts.InArticles {
			matches = append(matches, e.matchArticles(record.Articles, keyword)...)
		}
		if opts.InFullText {
			matches = append(matches, e.scanFullText(record.FullText, keyword)...)
		}

		if len(matches) == 0 {
			continue
		}

		results = append(results, Result{
			Country:    record.Country,
			Filename:   record.Filename,
			TotalPages: record.TotalPages,
			MatchCount: len(matches),
			Matches:    matches,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Country < results[j].Country
	})

	return results
}

// matchArticles tests the keyword against each article's title and content.
func (e *Engine) matchArticles(articles []treaty.Article, keyword string) []Match {
	keywordLower := strings.ToLower(keyword)

	var matches []Match
	for _, article := range articles {
		titleHit := strings.Contains(strings.ToLower(article.Title), keywordLower)
		contentHit := strings.Contains(strings.ToLower(article.Content), keywordLower)
		if !titleHit && !contentHit {
			continue
		}

		matches = append(matches, Match{
			Type:          MatchTypeArticle,
			ArticleNumber: article.Number,
			ArticleTitle:  article.Title,
			Content:       article.Content,
			Highlighted:   Highlight(article.Content, keyword),
			Page:          article.Page,
		})
	}
	return matches
}

// scanFullText records every case-insensitive occurrence of the keyword in
// the full document text. The scan advances by one position after each hit
// rather than by the keyword length, so a keyword with repeated characters
// can produce overlapping matches. That stepping is long-standing behavior
// and is kept as-is; changing it would change match counts.
func (e *Engine) scanFullText(fullText, keyword string) []Match {
	if keyword == "" {
		return nil
	}

	textLower := strings.ToLower(fullText)
	keywordLower := strings.ToLower(keyword)

	var matches []Match
	offset := 0
	for {
		idx := strings.Index(textLower[offset:], keywordLower)
		if idx == -1 {
			break
		}
		pos := offset + idx

		matches = append(matches, Match{
			Type:     MatchTypeFullText,
			Content:  contextWindow(fullText, pos, len(keywordLower)),
			Position: pos,
		})

		offset = pos + 1
	}
	return matches
}

// Highlight builds a context-windowed excerpt of content around the first
// case-insensitive occurrence of keyword, wrapping every occurrence inside
// the window in emphasis markers. When the keyword does not occur in the
// content (a title-only match), the first fallbackLength characters are
// returned instead.
func Highlight(content, keyword string) string {
	contentLower := strings.ToLower(content)
	keywordLower := strings.ToLower(keyword)

	pos := -1
	if keywordLower != "" {
		pos = strings.Index(contentLower, keywordLower)
	}
	if pos == -1 {
		if len(content) <= fallbackLength {
			return content
		}
		return content[:snapStart(content, fallbackLength)] + ellipsis
	}

	start := snapStart(content, clamp(pos-contextRadius, 0, len(content)))
	end := snapEnd(content, clamp(pos+len(keywordLower)+contextRadius, 0, len(content)))

	window := emphasizeAll(content[start:end], keyword)

	if start > 0 {
		window = ellipsis + window
	}
	if end < len(content) {
		window = window + ellipsis
	}
	return window
}

// contextWindow extracts the plain (unhighlighted) excerpt around a match at
// the given byte position.
func contextWindow(text string, pos, matchLen int) string {
	start := snapStart(text, clamp(pos-contextRadius, 0, len(text)))
	end := snapEnd(text, clamp(pos+matchLen+contextRadius, 0, len(text)))

	window := text[start:end]
	if start > 0 {
		window = ellipsis + window
	}
	if end < len(text) {
		window = window + ellipsis
	}
	return window
}

// emphasizeAll wraps every case-insensitive occurrence of keyword in the
// window, preserving the original casing of each occurrence.
func emphasizeAll(window, keyword string) string {
	if keyword == "" {
		return window
	}

	windowLower := strings.ToLower(window)
	keywordLower := strings.ToLower(keyword)

	var b strings.Builder
	offset := 0
	for {
		idx := strings.Index(windowLower[offset:], keywordLower)
		if idx == -1 {
			b.WriteString(window[offset:])
			break
		}
		pos := offset + idx
		b.WriteString(window[offset:pos])
		b.WriteString(emphasisMarker)
		b.WriteString(window[pos : pos+len(keywordLower)])
		b.WriteString(emphasisMarker)
		offset = pos + len(keywordLower)
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// snapStart moves an offset back to the nearest rune boundary.
func snapStart(s string, i int) int {
	for i > 0 && i < len(s) && s[i]&0xC0 == 0x80 {
		i--
	}
	return i
}

// snapEnd moves an offset forward to the nearest rune boundary.
func snapEnd(s string, i int) int {
	for i < len(s) && s[i]&0xC0 == 0x80 {
		i++
	}
	return i
}
