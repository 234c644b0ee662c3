// Package chunker turns per-page document text into retrieval-sized chunks
// under one of three strategies: table-of-contents driven, semantic
// (paragraph) driven, or fixed-size with sentence-boundary snapping.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

type Type string

const (
	TypeTOC      Type = "table_of_contents"
	TypeSemantic Type = "semantic"
	TypeFixed    Type = "fixed_size"
)

// Options controls chunk sizing. Sizes are in characters (runes).
type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

func DefaultOptions() Options {
	return Options{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// Validate rejects configurations under which the fixed-size walk cannot make
// progress. This is a fatal configuration error, checked once at startup.
func (o Options) Validate() error {
	if o.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", o.ChunkSize)
	}
	if o.ChunkOverlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got %d", o.ChunkOverlap)
	}
	if o.ChunkOverlap >= o.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", o.ChunkOverlap, o.ChunkSize)
	}
	return nil
}

// Chunk is one retrieval unit of document text. Content is never empty after
// trimming; chunks that would be are dropped before emission. Page numbers
// are 1-based and StartPage <= EndPage always holds.
type Chunk struct {
	Content   string
	Type      Type
	StartPage int
	EndPage   int

	// TOC strategy only.
	TOCNumber string
	TOCTitle  string
	TOCLevel  int

	// Semantic strategy only; 1-based. SubIndex is set when an oversized
	// paragraph was split further.
	Paragraph int
	SubIndex  int

	// Fixed-size strategy only; rune offsets into the page-joined text.
	StartChar int
	EndChar   int
}

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// ChunkByTOC cuts the document at the detected headings: the chunk for entry
// i runs from just after entry i's heading line up to (not including) entry
// i+1's heading line, or to the end of the document for the last entry. The
// recorded page range ends on the page before the next heading so that the
// page ranges of consecutive chunks partition the document. Falls back to
// ChunkBySemantic when no entries exist.
func ChunkByTOC(pages []string, entries []TOCEntry, opts Options) []Chunk {
	if len(entries) == 0 {
		return ChunkBySemantic(pages, opts)
	}

	sorted := sortEntries(entries)
	var chunks []Chunk

	for i, entry := range sorted {
		var next *TOCEntry
		if i+1 < len(sorted) {
			next = &sorted[i+1]
		}

		content := strings.TrimSpace(sectionText(pages, entry, next))
		if content == "" {
			continue
		}

		endPage := len(pages)
		if next != nil {
			endPage = next.Page - 1
			if endPage < entry.Page {
				endPage = entry.Page
			}
		}

		chunks = append(chunks, Chunk{
			Content:   content,
			Type:      TypeTOC,
			StartPage: entry.Page,
			EndPage:   endPage,
			TOCNumber: entry.Number,
			TOCTitle:  entry.Title,
			TOCLevel:  entry.Level,
		})
	}

	return chunks
}

// sectionText collects the lines in the half-open range between two headings,
// excluding the heading line itself.
func sectionText(pages []string, entry TOCEntry, next *TOCEntry) string {
	var parts []string

	startLines := strings.Split(pages[entry.Page-1], "\n")

	if next != nil && next.Page == entry.Page {
		// Both headings on the same page: the lines strictly between them.
		lo, hi := entry.Line, next.Line-1
		if hi > len(startLines) {
			hi = len(startLines)
		}
		if lo < hi {
			parts = append(parts, strings.Join(startLines[lo:hi], "\n"))
		}
		return strings.Join(parts, "\n")
	}

	// Rest of the heading's page.
	if entry.Line < len(startLines) {
		parts = append(parts, strings.Join(startLines[entry.Line:], "\n"))
	}

	lastPage := len(pages)
	if next != nil {
		lastPage = next.Page - 1
	}
	for p := entry.Page + 1; p <= lastPage && p <= len(pages); p++ {
		parts = append(parts, pages[p-1])
	}

	// Lines on the next heading's page that precede the heading.
	if next != nil && next.Page <= len(pages) {
		nextLines := strings.Split(pages[next.Page-1], "\n")
		hi := next.Line - 1
		if hi > len(nextLines) {
			hi = len(nextLines)
		}
		if hi > 0 {
			parts = append(parts, strings.Join(nextLines[:hi], "\n"))
		}
	}

	return strings.Join(parts, "\n")
}

// ChunkBySemantic splits each page on blank-line boundaries and emits one
// chunk per paragraph. Paragraphs longer than twice the target chunk size are
// split further at sentence boundaries, each piece keeping the paragraph
// index plus its own sub-index. No chunk crosses a page.
func ChunkBySemantic(pages []string, opts Options) []Chunk {
	var chunks []Chunk

	for pageIdx, pageText := range pages {
		page := pageIdx + 1
		paragraphs := paragraphSplit.Split(strings.TrimSpace(pageText), -1)

		for paraIdx, paragraph := range paragraphs {
			paragraph = strings.TrimSpace(paragraph)
			if paragraph == "" {
				continue
			}

			if len([]rune(paragraph)) > opts.ChunkSize*2 {
				for subIdx, piece := range splitLongParagraph(paragraph, opts) {
					chunks = append(chunks, Chunk{
						Content:   piece,
						Type:      TypeSemantic,
						StartPage: page,
						EndPage:   page,
						Paragraph: paraIdx + 1,
						SubIndex:  subIdx + 1,
					})
				}
				continue
			}

			chunks = append(chunks, Chunk{
				Content:   paragraph,
				Type:      TypeSemantic,
				StartPage: page,
				EndPage:   page,
				Paragraph: paraIdx + 1,
			})
		}
	}

	return chunks
}

// ChunkByFixedSize concatenates all pages with a newline separator and walks
// the text with a sliding window of ChunkSize runes and ChunkOverlap runes of
// overlap. Each window's right edge is extended (never truncated) to the
// nearest sentence boundary within a bounded look-ahead. The originating page
// range is back-computed from cumulative per-page offsets.
func ChunkByFixedSize(pages []string, opts Options) []Chunk {
	full := []rune(strings.Join(pages, "\n"))
	offsets := pageOffsets(pages)

	var chunks []Chunk
	start := 0

	for start < len(full) {
		end := start + opts.ChunkSize
		if end > len(full) {
			end = len(full)
		} else {
			end = extendToSentenceBoundary(full, end)
		}

		content := strings.TrimSpace(string(full[start:end]))
		if content != "" {
			startPage, endPage := pageRangeFor(offsets, start, end)
			chunks = append(chunks, Chunk{
				Content:   content,
				Type:      TypeFixed,
				StartPage: startPage,
				EndPage:   endPage,
				StartChar: start,
				EndChar:   end,
			})
		}

		if end >= len(full) {
			break
		}
		next := end - opts.ChunkOverlap
		if next <= start {
			break
		}
		start = next
	}

	return chunks
}

// boundaryLookahead caps how far past the raw window edge the sentence search
// may reach before giving up and using the raw edge.
const boundaryLookahead = 100

func extendToSentenceBoundary(text []rune, pos int) int {
	limit := pos + boundaryLookahead
	if limit > len(text) {
		limit = len(text)
	}
	for i := pos; i < limit; i++ {
		switch text[i] {
		case '.', '!', '?':
			return i + 1
		case '\n':
			if i+1 < len(text) && text[i+1] == '\n' {
				return i + 1
			}
		}
	}
	return pos
}

// pageOffsets returns the rune offset of each page's first character within
// the page-joined text (one newline separator per page boundary).
func pageOffsets(pages []string) []int {
	offsets := make([]int, len(pages))
	pos := 0
	for i, page := range pages {
		offsets[i] = pos
		pos += len([]rune(page)) + 1
	}
	return offsets
}

func pageRangeFor(offsets []int, startChar, endChar int) (int, int) {
	startPage, endPage := 1, 1
	for i, off := range offsets {
		if off <= startChar {
			startPage = i + 1
		}
		if off <= endChar {
			endPage = i + 1
		}
		if off > endChar {
			break
		}
	}
	if endPage < startPage {
		endPage = startPage
	}
	return startPage, endPage
}

// splitLongParagraph applies the fixed-size window with sentence extension to
// a single oversized paragraph.
func splitLongParagraph(paragraph string, opts Options) []string {
	runes := []rune(paragraph)
	if len(runes) <= opts.ChunkSize {
		return []string{paragraph}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := start + opts.ChunkSize
		if end > len(runes) {
			end = len(runes)
		} else {
			end = extendToSentenceBoundary(runes, end)
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			pieces = append(pieces, piece)
		}

		if end >= len(runes) {
			break
		}
		next := end - opts.ChunkOverlap
		if next <= start {
			break
		}
		start = next
	}
	return pieces
}
