// Package extract turns raw per-page treaty text into structured article
// records via heading detection.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/coolbeans/treatysearch/pkg/treaty"
)

const (
	// minContentLength is the minimum trimmed content length for a heading
	// candidate to be kept as a real article. Shorter fragments are
	// near-certainly cross-references like "see Article 5".
	minContentLength = 10

	// titleLookahead bounds how far past a heading match the title search
	// extends.
	titleLookahead = 200

	// pageBreakMarker separates pages in text extracted from PDF sources.
	pageBreakMarker = "\f"
)

// ExtractionError indicates a source document could not be processed. No
// partial record is persisted when this is returned.
type ExtractionError struct {
	Filename string
	Reason   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %s", e.Filename, e.Reason)
}

// HeadingCandidate is a raw article-heading match before false-positive
// filtering.
type HeadingCandidate struct {
	// Ordinal is the article number as matched, e.g. "12" or "10-2".
	Ordinal string

	// Start and End are byte offsets of the heading match in the full text.
	Start int
	End   int

	// Raw is the matched heading text.
	Raw string
}

// Extractor detects article headings in treaty text. Treaties filed with the
// Korean tax office carry either Korean-style headings (제N조) or
// English-style headings (Article N), often both in one bilingual document.
type Extractor struct {
	headingPattern *regexp.Regexp
	titlePattern   *regexp.Regexp
}

// NewExtractor creates an Extractor with patterns for both heading formats.
func NewExtractor() *Extractor {
	return &Extractor{
		// 제 5 조 / 제5-2조 / Article 5 / ARTICLE 10-2. Whitespace may
		// include line breaks; OCR output regularly splits headings.
		headingPattern: regexp.MustCompile(`(?i)제\s*(\d+(?:-\d+)?)\s*조|\barticle\s+(\d+(?:-\d+)?)`),

		// Bracketed or parenthesized short title following a heading,
		// e.g. 제6조【사업소득】 or Article 10 (Dividends).
		titlePattern: regexp.MustCompile(`【([^【】\n]+)】|\[([^\[\]\n]+)\]|\(([^()\n]+)\)`),
	}
}

// Process builds a complete treaty record from raw per-page text. Pages are
// concatenated in the given order, newline-joined, and articles are derived
// from the combined text.
func (e *Extractor) Process(country, filename, sourcePath string, pages []treaty.Page) (*treaty.Record, error) {
	if country == "" {
		return nil, &ExtractionError{Filename: filename, Reason: "country identifier is required"}
	}
	if len(pages) == 0 {
		return nil, &ExtractionError{Filename: filename, Reason: "document contains no pages"}
	}

	texts := make([]string, len(pages))
	empty := true
	for i, page := range pages {
		texts[i] = page.Text
		if strings.TrimSpace(page.Text) != "" {
			empty = false
		}
	}
	if empty {
		return nil, &ExtractionError{Filename: filename, Reason: "document contains no extractable text"}
	}

	fullText := strings.Join(texts, "\n")

	return &treaty.Record{
		Country:    country,
		Filename:   filename,
		SourcePath: sourcePath,
		TotalPages: len(pages),
		FullText:   fullText,
		Pages:      pages,
		Articles:   e.ExtractArticles(fullText),
		Metadata: treaty.Metadata{
			Country:     country,
			ProcessedAt: time.Now().UTC(),
			Version:     treaty.RecordVersion,
		},
	}, nil
}

// ExtractArticles runs the full extraction pipeline: heading candidate scan
// followed by false-positive filtering. The result is ordered by position in
// the text, which is not necessarily ascending article number.
func (e *Extractor) ExtractArticles(fullText string) []treaty.Article {
	return e.BuildArticles(fullText, e.ScanHeadings(fullText))
}

// ScanHeadings locates every article-heading match in the text, in ascending
// offset order. No filtering is applied at this stage.
func (e *Extractor) ScanHeadings(fullText string) []HeadingCandidate {
	matches := e.headingPattern.FindAllStringSubmatchIndex(fullText, -1)
	candidates := make([]HeadingCandidate, 0, len(matches))

	for _, m := range matches {
		// Group 1 is the Korean ordinal, group 2 the English one.
		ordinal := ""
		if m[2] >= 0 {
			ordinal = fullText[m[2]:m[3]]
		} else if m[4] >= 0 {
			ordinal = fullText[m[4]:m[5]]
		}
		if ordinal == "" {
			continue
		}

		candidates = append(candidates, HeadingCandidate{
			Ordinal: ordinal,
			Start:   m[0],
			End:     m[1],
			Raw:     fullText[m[0]:m[1]],
		})
	}

	return candidates
}

// BuildArticles converts heading candidates into article records. Candidates
// whose content span trims to fewer than minContentLength characters are
// discarded as false heading matches.
func (e *Extractor) BuildArticles(fullText string, candidates []HeadingCandidate) []treaty.Article {
	articles := make([]treaty.Article, 0, len(candidates))

	for i, candidate := range candidates {
		contentEnd := len(fullText)
		if i+1 < len(candidates) {
			contentEnd = candidates[i+1].Start
		}

		content := strings.TrimSpace(fullText[candidate.End:contentEnd])
		if len([]rune(content)) < minContentLength {
			continue
		}

		articles = append(articles, treaty.Article{
			Number:   candidate.Ordinal,
			Title:    e.extractTitle(fullText, candidate.End),
			Content:  content,
			Page:     pageEstimate(fullText, candidate.Start),
			Position: candidate.Start,
		})
	}

	return articles
}

// extractTitle searches the text immediately following a heading match for a
// bracketed or parenthesized short title.
func (e *Extractor) extractTitle(fullText string, headingEnd int) string {
	windowEnd := headingEnd + titleLookahead
	if windowEnd > len(fullText) {
		windowEnd = len(fullText)
	}
	// Back off to a rune boundary so the window never splits a character.
	for windowEnd < len(fullText) && !isRuneStart(fullText[windowEnd]) {
		windowEnd--
	}

	for _, m := range e.titlePattern.FindAllStringSubmatch(fullText[headingEnd:windowEnd], -1) {
		for _, group := range m[1:] {
			title := strings.TrimSpace(group)
			if title == "" || isAllDigits(title) {
				// Bare numbers are list items, not titles.
				continue
			}
			return title
		}
	}
	return treaty.NoTitle
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// pageEstimate counts page-break markers preceding the given offset. When the
// upstream text extraction does not preserve markers this degrades to page 1.
func pageEstimate(fullText string, offset int) int {
	return 1 + strings.Count(fullText[:offset], pageBreakMarker)
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
