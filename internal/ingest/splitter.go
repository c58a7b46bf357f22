package ingest

import "strings"

// Default chunking parameters, in bytes
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Splitter cuts text into overlapping chunks, preferring paragraph, line and
// sentence boundaries.
type Splitter struct {
	Size    int
	Overlap int
}

// Split returns the non-empty chunks of text
func (s Splitter) Split(text string) []string {
	size, overlap := s.Size, s.Overlap
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	if len(text) <= size {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end < len(text) {
			end = breakPoint(text, start, end)
		} else {
			end = len(text)
		}
		if end <= start {
			end = min(start+size, len(text))
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(text) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		if aligned := alignRune(text, next); aligned > start {
			next = aligned
		}
		start = next
	}
	return chunks
}

// breakPoint finds the last good boundary in text[start:end]
func breakPoint(text string, start, end int) int {
	window := text[start:end]
	if i := strings.LastIndex(window, "\n\n"); i > 0 {
		return start + i
	}
	if i := strings.LastIndex(window, "\n"); i > 0 {
		return start + i
	}
	best := -1
	for _, sep := range []string{". ", "! ", "? "} {
		if i := strings.LastIndex(window, sep); i > best {
			best = i
		}
	}
	if best > 0 {
		return start + best + 1
	}
	return alignRune(text, end)
}

// alignRune moves i back to the start of a UTF-8 sequence
func alignRune(text string, i int) int {
	for i > 0 && i < len(text) && text[i]&0xC0 == 0x80 {
		i--
	}
	return i
}
