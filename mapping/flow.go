package mapping

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"idmlfill/content/text"
)

// Slice cuts value into chunk texts. Offsets count characters and are
// clamped to the value. Missing start continues where previous chunk ended,
// missing end of the last chunk runs to the end of value. Missing end of any
// other chunk is computed from capacity of its tag: the longest run of whole
// sentences which fits, or whole words when even first sentence does not
// fit. Zero capacity means unknown and takes the rest of value. Explicit
// offsets are taken literally, white space is trimmed only at computed
// boundaries.
func Slice(value string, chunks []Chunk, capacity func(tag string) int, splitter *text.Splitter) []string {
	var (
		runes = []rune(value)
		n     = len(runes)
		res   = make([]string, len(chunks))
		prev  int
		// previous end was computed from capacity
		flowed bool
	)

	for i, c := range chunks {
		start, trimLeft := prev, flowed
		if c.Start != nil {
			start, trimLeft = clamp(*c.Start, 0, n), false
		}

		var end int
		flowed = false
		switch {
		case c.End != nil:
			end = clamp(*c.End, start, n)
		case i == len(chunks)-1:
			end = n
		default:
			limit := 0
			if capacity != nil {
				limit = capacity(c.Tag)
			}
			end, flowed = flowEnd(runes, start, limit, splitter), true
		}

		chunk := string(runes[start:end])
		if trimLeft {
			chunk = strings.TrimLeftFunc(chunk, unicode.IsSpace)
		}
		if flowed {
			chunk = strings.TrimRightFunc(chunk, unicode.IsSpace)
		}
		res[i] = chunk
		prev = end
	}
	return res
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func flowEnd(runes []rune, start, capacity int, splitter *text.Splitter) int {
	n := len(runes)
	// leading white space at computed boundary is trimmed, do not count it
	for start < n && unicode.IsSpace(runes[start]) {
		start++
	}
	if capacity <= 0 || start+capacity >= n {
		return n
	}
	limit := start + capacity

	best, pos := 0, start
	for sentence := range splitter.Sentences(string(runes[start:])) {
		length := utf8.RuneCountInString(sentence)
		trimmed := utf8.RuneCountInString(strings.TrimRightFunc(sentence, unicode.IsSpace))
		if pos+trimmed > limit {
			break
		}
		best = min(pos+length, limit)
		pos += length
	}
	if best > start {
		return best
	}

	for i := limit; i > start; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return limit
}
