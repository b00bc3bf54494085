package summarize

import (
	"strings"

	"github.com/Epistemic-Technology/casebrief/models"
)

// BuildChunk assembles the chunk starting at document index i. It covers
// pages [i, i+pagesPerChunk) clamped to the document, with newlines flattened
// and page contents joined by single spaces. The neighbouring snippets come
// from the whole document, so context crosses batch boundaries.
func BuildChunk(docs []models.Page, i, window, pagesPerChunk int) models.Chunk {
	if pagesPerChunk <= 0 {
		pagesPerChunk = 1
	}
	end := min(i+pagesPerChunk, len(docs))

	chunk := models.Chunk{PageNumbers: make([]int, 0, end-i)}
	parts := make([]string, 0, end-i)
	for _, page := range docs[i:end] {
		chunk.PageNumbers = append(chunk.PageNumbers, page.PageNumber)
		parts = append(parts, flatten(page.Content))
	}
	chunk.Content = strings.Join(parts, " ")

	if window > 0 {
		if i > 0 {
			chunk.PreviousPageEnding = lastRunes(flatten(docs[i-1].Content), window)
		}
		if end < len(docs) {
			chunk.NextPageBeginning = firstRunes(flatten(docs[end].Content), window)
		}
	}
	return chunk
}

// PlanChunks returns the start index of every chunk covering docs[start:end].
func PlanChunks(start, end, pagesPerChunk int) []int {
	if pagesPerChunk <= 0 {
		pagesPerChunk = 1
	}
	var starts []int
	for i := start; i < end; i += pagesPerChunk {
		starts = append(starts, i)
	}
	return starts
}

func flatten(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// blank reports whether text holds nothing but whitespace.
func blank(text string) bool {
	return strings.TrimSpace(text) == ""
}
