// Package source translates character offsets into line and column positions
// and renders offending source lines with a cursor under the problem spot.
package source

import (
	"strings"

	"golang.org/x/text/width"
)

// Text is an indexed view of some source text. Offsets given to and returned
// from a Text are character (rune) offsets, the same unit parse errors and
// string tokens use.
type Text struct {
	name       string
	runes      []rune
	lineStarts []int
}

// New creates a Text over the given content. name is used only for display.
func New(name string, content string) *Text {
	t := &Text{name: name, runes: []rune(content)}
	t.lineStarts = []int{0}
	for i, ch := range t.runes {
		if ch == '\n' {
			t.lineStarts = append(t.lineStarts, i+1)
		}
	}
	return t
}

// Name returns the display name the Text was created with.
func (t *Text) Name() string {
	return t.name
}

// Len returns the number of characters in the text.
func (t *Text) Len() int {
	return len(t.runes)
}

// LineCol gives the 1-indexed line and column of the character at offset pos.
// Offsets past the end of the text map to the position just after the last
// character.
func (t *Text) LineCol(pos int) (line, col int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(t.runes) {
		pos = len(t.runes)
	}

	lineIdx := t.findLineIndex(pos)
	return lineIdx + 1, pos - t.lineStarts[lineIdx] + 1
}

// Offset is the inverse of LineCol. Out-of-range positions are clamped.
func (t *Text) Offset(line, col int) int {
	if line <= 0 || col <= 0 {
		return 0
	}
	if line > len(t.lineStarts) {
		return len(t.runes)
	}

	res := t.lineStarts[line-1] + col - 1
	if res > len(t.runes) {
		return len(t.runes)
	}
	return res
}

// Line returns the full text of the given 1-indexed line without its
// terminator.
func (t *Text) Line(line int) string {
	if line <= 0 || line > len(t.lineStarts) {
		return ""
	}
	start := t.lineStarts[line-1]
	end := len(t.runes)
	if line < len(t.lineStarts) {
		end = t.lineStarts[line] - 1
	}
	s := string(t.runes[start:end])
	return strings.TrimSuffix(s, "\r")
}

// Cursor returns the line containing pos followed by a second line with a '^'
// under the character at pos. Wide characters ahead of the cursor on the line
// count as two columns so the caret lines up in a terminal.
func (t *Text) Cursor(pos int) string {
	line, col := t.LineCol(pos)
	src := t.Line(line)

	var sb strings.Builder
	sb.WriteString(src)
	sb.WriteRune('\n')

	srcRunes := []rune(src)
	for i := 0; i < col-1 && i < len(srcRunes); i++ {
		ch := srcRunes[i]
		switch {
		case ch == '\t':
			sb.WriteRune('\t')
		case isWide(ch):
			sb.WriteString("  ")
		default:
			sb.WriteRune(' ')
		}
	}
	sb.WriteRune('^')
	return sb.String()
}

func isWide(ch rune) bool {
	k := width.LookupRune(ch).Kind()
	return k == width.EastAsianWide || k == width.EastAsianFullwidth
}

func (t *Text) findLineIndex(pos int) int {
	lo, hi := 0, len(t.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) >> 1
		if t.lineStarts[mid] <= pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
