package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRelevantSectionBoundedByListItems(t *testing.T) {
	first := "1. " + strings.Repeat("가", 60) + " "
	second := "2. 일방 체약국의 거주자가 취득하는 배당소득 payment 에 대하여는 수취인이 거주자인 체약국에서 과세할 수 있으며 그 원천지국에서도 과세할 수 있다. "
	third := "3. " + strings.Repeat("나", 60)
	content := first + second + third

	got := ExtractRelevantSection(content, "payment")

	assert.Contains(t, got, "payment")
	assert.Contains(t, got, "배당소득")
	assert.NotContains(t, got, "가가가")
	assert.NotContains(t, got, "나나나")
}

func TestExtractRelevantSectionNoBoundaries(t *testing.T) {
	content := "일방 체약국의 거주자가 취득하는 이자소득은 그 체약국에서 과세할 수 있다 그리고 원천지국에서도 일정 한도 내에서 과세할 수 있다"

	got := ExtractRelevantSection(content, "이자소득")

	// No heading-like markers: the whole content is the section.
	assert.Contains(t, got, "거주자가")
	assert.Contains(t, got, "과세할")
}

// A slice under 100 characters is widened by 200 on each side.
func TestExtractRelevantSectionWidensShortSlices(t *testing.T) {
	padding := strings.Repeat("x", 150)
	content := padding + " (1) needle (2) " + padding

	got := ExtractRelevantSection(content, "needle")

	// The bare (1)..(2) slice is well under 100 bytes, so the result must
	// include widened context from both sides.
	assert.Contains(t, got, "needle")
	assert.Contains(t, got, "xxx")
}

func TestExtractRelevantSectionKeywordAbsent(t *testing.T) {
	content := "제1조 본문 1. 첫째 2. 둘째"

	got := ExtractRelevantSection(content, "absent")

	// Falls back to the formatted full content.
	assert.Contains(t, got, "첫째")
	assert.Contains(t, got, "둘째")
}

func TestFormatArticleContentNumberedItems(t *testing.T) {
	got := FormatArticleContent("배당에 관한 규정 1. 첫째 항목 2. 둘째 항목")

	assert.Contains(t, got, "\n1. ")
	assert.Contains(t, got, "\n2. ")
}

func TestFormatArticleContentDoesNotSplitDecimals(t *testing.T) {
	got := FormatArticleContent("세율은 12.5퍼센트로 한다")
	assert.NotContains(t, got, "\n5.")
}

func TestFormatArticleContentScriptTransitions(t *testing.T) {
	got := FormatArticleContent("소득세Income Tax소득")
	assert.Equal(t, "소득세\nIncome Tax\n소득", got)
}

func TestFormatArticleContentCollapsesBlankLines(t *testing.T) {
	got := FormatArticleContent("첫째\n\n\n\n둘째")
	assert.Equal(t, "첫째\n\n둘째", got)
}

func TestFormatArticleContentTrims(t *testing.T) {
	got := FormatArticleContent("   본문   ")
	assert.Equal(t, "본문", got)
}

func TestFormatArticleContentIsDeterministic(t *testing.T) {
	input := "규정 1. 첫째 항목Income소득\n\n\n\n2. 둘째"
	require.Equal(t, FormatArticleContent(input), FormatArticleContent(input))
}

func TestExtractRelevantSectionCircledNumbers(t *testing.T) {
	first := "① " + strings.Repeat("가", 60) + " "
	second := "② 이자에 대하여는 원천지국에서 과세할 수 있되 그 세율은 총액의 일정 비율을 초과하지 아니하는 한도로 제한된다는 점에 유의한다 "
	third := "③ " + strings.Repeat("나", 60)

	got := ExtractRelevantSection(first+second+third, "세율")

	assert.Contains(t, got, "세율")
	assert.NotContains(t, got, "가가가")
	assert.NotContains(t, got, "나나나")
}
