package search

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// minSectionLength is the smallest useful section slice; shorter slices
	// are widened symmetrically by sectionWiden bytes per side.
	minSectionLength = 100
	sectionWiden     = 200
)

// sectionBoundaryPatterns are the heading-like markers that delimit a
// sub-section inside an article's content: article headings, numbered list
// items, Korean ordinal items, parenthesized numbers, and circled numbers.
var sectionBoundaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`제\s*\d+(?:-\d+)?\s*조`),
	regexp.MustCompile(`(?m)(?:^|\s)\d+\.\s`),
	regexp.MustCompile(`(?m)(?:^|\s)[가나다라마바사아자차카타파하]\.\s`),
	regexp.MustCompile(`\(\d+\)`),
	regexp.MustCompile(`[①②③④⑤⑥⑦⑧⑨⑩⑪⑫⑬⑭⑮]`),
}

// ExtractRelevantSection returns the sub-section of an article's content
// enclosing the first occurrence of keyword, delimited by the nearest
// heading-like markers before and after the match, reformatted for
// readability. The persisted content is never modified.
func ExtractRelevantSection(content, keyword string) string {
	contentLower := strings.ToLower(content)
	keywordLower := strings.ToLower(keyword)

	pos := -1
	if keywordLower != "" {
		pos = strings.Index(contentLower, keywordLower)
	}
	if pos == -1 {
		return FormatArticleContent(content)
	}

	start := lastBoundaryBefore(content, pos)
	end := firstBoundaryAfter(content, pos+len(keywordLower))

	if end-start < minSectionLength {
		start = snapStart(content, clamp(start-sectionWiden, 0, len(content)))
		end = snapEnd(content, clamp(end+sectionWiden, 0, len(content)))
	}

	return FormatArticleContent(content[start:end])
}

// lastBoundaryBefore finds the start of the last boundary marker strictly
// before the given offset, or 0 when none exists.
func lastBoundaryBefore(content string, pos int) int {
	head := content[:pos]
	start := 0
	for _, pattern := range sectionBoundaryPatterns {
		locs := pattern.FindAllStringIndex(head, -1)
		if len(locs) == 0 {
			continue
		}
		if last := locs[len(locs)-1][0]; last > start {
			start = last
		}
	}
	return start
}

// firstBoundaryAfter finds the start of the first boundary marker at or
// after the given offset, or len(content) when none exists.
func firstBoundaryAfter(content string, pos int) int {
	if pos > len(content) {
		pos = len(content)
	}
	pos = snapEnd(content, pos)

	tail := content[pos:]
	end := len(content)
	for _, pattern := range sectionBoundaryPatterns {
		if loc := pattern.FindStringIndex(tail); loc != nil {
			if candidate := pos + loc[0]; candidate < end {
				end = candidate
			}
		}
	}
	return end
}

var (
	numberedItemPattern  = regexp.MustCompile(`([^\n\d])(\d+\.\s)`)
	tripleNewlinePattern = regexp.MustCompile(`\n{3,}`)
)

// FormatArticleContent applies a deterministic readability transform for
// display: numbered list items start on their own line, Hangul/Latin script
// transitions break the line, and runs of blank lines collapse. Presentation
// only; the stored content is untouched.
func FormatArticleContent(text string) string {
	text = numberedItemPattern.ReplaceAllString(text, "$1\n$2")
	text = breakScriptTransitions(text)
	text = tripleNewlinePattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// breakScriptTransitions inserts a line break wherever the text switches
// between Hangul and Latin letters. Bilingual treaty texts interleave the
// two scripts paragraph by paragraph; OCR loses the original line structure.
func breakScriptTransitions(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	prev := rune(0)
	for _, r := range text {
		if prev != 0 && isScriptTransition(prev, r) {
			b.WriteByte('\n')
		}
		b.WriteRune(r)
		if !unicode.IsSpace(r) {
			prev = r
		}
	}
	return b.String()
}

func isScriptTransition(prev, cur rune) bool {
	return (isHangul(prev) && isLatinLetter(cur)) || (isLatinLetter(prev) && isHangul(cur))
}

func isHangul(r rune) bool {
	return unicode.Is(unicode.Hangul, r)
}

func isLatinLetter(r rune) bool {
	return unicode.Is(unicode.Latin, r)
}
