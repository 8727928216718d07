package parselet

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// readChunk is the number of runes pulled from the underlying reader each time
// the buffer runs dry.
const readChunk = 512

// Input is the character source a Parser reads from. It buffers characters as
// they are read so that parselets can back up to any earlier position; nothing
// is ever dropped from the buffer during a parse.
type Input struct {
	r   *bufio.Reader
	buf []rune

	// accepted is the furthest index any match has consumed up to.
	accepted int

	atEOF bool
	err   error
}

// NewInput creates an Input that reads lazily from r.
func NewInput(r io.Reader) *Input {
	return &Input{r: bufio.NewReader(r)}
}

// NewStringInput creates an Input over the contents of s.
func NewStringInput(s string) *Input {
	return &Input{buf: []rune(s), atEOF: true}
}

// fill reads until index i is buffered or the reader is exhausted. It returns
// whether i is now buffered.
func (in *Input) fill(i int) bool {
	for i >= len(in.buf) && !in.atEOF {
		for n := 0; n < readChunk; n++ {
			ch, _, err := in.r.ReadRune()
			if err != nil {
				in.atEOF = true
				if !errors.Is(err, io.EOF) {
					in.err = err
				}
				break
			}
			in.buf = append(in.buf, ch)
		}
	}
	return i < len(in.buf)
}

// CharAt returns the character at index i. ok is false if i is past the end of
// the input.
func (in *Input) CharAt(i int) (ch rune, ok bool) {
	if i < 0 || !in.fill(i) {
		return 0, false
	}
	return in.buf[i], true
}

// AtEOF returns whether index i is at or past the end of the input.
func (in *Input) AtEOF(i int) bool {
	return !in.fill(i)
}

// HasPrefix returns whether the input starting at index i begins with lit.
func (in *Input) HasPrefix(i int, lit []rune) bool {
	if len(lit) == 0 {
		return true
	}
	if !in.fill(i + len(lit) - 1) {
		return false
	}
	for j, ch := range lit {
		if in.buf[i+j] != ch {
			return false
		}
	}
	return true
}

// Substring returns the text in [start, end). The range must already have been
// read.
func (in *Input) Substring(start, end int) string {
	if end > len(in.buf) {
		end = len(in.buf)
	}
	if start >= end {
		return ""
	}
	return string(in.buf[start:end])
}

// Buffered returns the number of characters read so far.
func (in *Input) Buffered() int {
	return len(in.buf)
}

// Accepted returns the furthest index consumed by a successful match.
func (in *Input) Accepted() int {
	return in.accepted
}

func (in *Input) accept(i int) {
	if i > in.accepted {
		in.accepted = i
	}
}

// Err returns the first non-EOF error the underlying reader gave, if any.
func (in *Input) Err() error {
	return in.err
}

// Text returns everything read so far, reading the rest of the input first.
func (in *Input) Text() string {
	for !in.atEOF {
		in.fill(len(in.buf))
	}
	var sb strings.Builder
	for _, ch := range in.buf {
		sb.WriteRune(ch)
	}
	return sb.String()
}
