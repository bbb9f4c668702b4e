package textproc

import (
	"strings"
	"unicode/utf8"
)

// Window is one sliding-window slice of a Document's extracted text,
// carrying the zero-based absolute byte offsets Chunk requires (§4.3).
type Window struct {
	Content string
	Start   int
	End     int
}

// SlidingWindow splits text into overlapping windows of windowSize bytes
// with overlap bytes of repetition between consecutive windows (§4.3
// defaults: 1000/200). Windows never split a UTF-8 code point, and
// prefer to end on the last whitespace before the raw window boundary so
// chunks don't sever words mid-token. Empty (after trimming) windows are
// dropped.
func SlidingWindow(text string, windowSize, overlap int) []Window {
	if windowSize <= 0 {
		windowSize = 1000
	}
	if overlap < 0 || overlap >= windowSize {
		overlap = 0
	}

	n := len(text)
	if n == 0 {
		return nil
	}

	var windows []Window
	pos := 0
	for pos < n {
		end := pos + windowSize
		if end >= n {
			end = n
		} else {
			end = runeBoundaryBackward(text, end)
			if ws := lastWhitespaceBetween(text, pos, end); ws > pos {
				end = ws
			}
		}

		if end <= pos {
			end = runeBoundaryForward(text, pos+1)
			if end > n {
				end = n
			}
		}

		content := text[pos:end]
		if strings.TrimSpace(content) != "" {
			windows = append(windows, Window{Content: content, Start: pos, End: end})
		}

		if end >= n {
			break
		}

		next := end - overlap
		if next <= pos {
			next = end
		}
		pos = runeBoundaryForward(text, next)
	}

	return windows
}

func runeBoundaryBackward(text string, idx int) int {
	for idx > 0 && idx < len(text) && !utf8.RuneStart(text[idx]) {
		idx--
	}
	return idx
}

func runeBoundaryForward(text string, idx int) int {
	for idx < len(text) && !utf8.RuneStart(text[idx]) {
		idx++
	}
	return idx
}

// lastWhitespaceBetween returns the byte offset just after the last
// whitespace rune in text[start:end], or start-1 if none is found.
func lastWhitespaceBetween(text string, start, end int) int {
	best := start - 1
	for i := start; i < end; {
		r, size := utf8.DecodeRuneInString(text[i:end])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		if isSplitWhitespace(r) {
			best = i + size
		}
		i += size
	}
	return best
}

func isSplitWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}
