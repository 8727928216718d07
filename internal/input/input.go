// Package input reads lines of source text typed into the parselet REPL, from
// a terminal or from any other stream.
package input

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// Reader is a type that can be used for getting lines of input.
type Reader interface {
	// ReadLine reads a single line. It will block until one is ready. Unless
	// blanks are allowed, lines that are empty or whitespace-only are skipped.
	//
	// When error is io.EOF, string will always be empty. If EOF was encountered
	// on a call but some input was received, the input will be returned and
	// error will be nil, and the next call to ReadLine will return "",
	// io.EOF.
	ReadLine() (string, error)

	// AllowBlank sets whether ReadLine may return empty lines.
	AllowBlank(allow bool)

	// SetPrompt sets the text shown before each line is read.
	SetPrompt(p string)

	// Close performs any operations required to clean the resources created by
	// the Reader. It should be called at least once when the Reader is no
	// longer needed.
	Close() error
}

// DirectReader implements Reader and reads lines from any generic input
// stream directly. It can be used generically with any io.Reader but does not
// sanitize the input of control and escape sequences.
//
// DirectReader should not be used directly; instead, create one with
// [NewDirectReader].
type DirectReader struct {
	r             *bufio.Reader
	w             io.Writer
	prompt        string
	blanksAllowed bool
}

// InteractiveReader implements Reader and reads lines from stdin using a go
// implementation of the GNU Readline library. This keeps input clear of all
// typing and editing escape sequences and enables the use of history. This
// should in general probably only be used when directly connecting to a TTY
// for input.
//
// InteractiveReader should not be used directly; instead, create one with
// [NewInteractiveReader].
type InteractiveReader struct {
	rl            *readline.Instance
	blanksAllowed bool
	prompt        string
}

// NewDirectReader creates a new DirectReader and initializes a buffered reader
// on r. Prompts are written to w; if w is nil, no prompt is shown.
func NewDirectReader(r io.Reader, w io.Writer) *DirectReader {
	return &DirectReader{
		r: bufio.NewReader(r),
		w: w,
	}
}

// NewInteractiveReader creates a new InteractiveReader and initializes
// readline. History is kept in historyFile if it is not empty. The returned
// InteractiveReader must have Close() called on it before disposal to properly
// teardown readline resources.
func NewInteractiveReader(prompt string, historyFile string) (*InteractiveReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      prompt,
		HistoryFile: historyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("create readline config: %w", err)
	}

	return &InteractiveReader{
		rl:     rl,
		prompt: prompt,
	}, nil
}

// Close cleans up resources associated with the DirectReader.
func (dr *DirectReader) Close() error {
	return nil
}

// Close cleans up readline resources and other resources associated with the
// InteractiveReader.
func (ir *InteractiveReader) Close() error {
	return ir.rl.Close()
}

// ReadLine reads the next line from the stream. Trailing whitespace is
// removed; leading whitespace is kept since it may be indentation.
func (dr *DirectReader) ReadLine() (string, error) {
	for {
		if dr.w != nil && dr.prompt != "" {
			if _, err := io.WriteString(dr.w, dr.prompt); err != nil {
				return "", fmt.Errorf("could not write prompt: %w", err)
			}
		}

		line, err := dr.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}

		line = strings.TrimRight(line, " \t\r\n")

		if line != "" || dr.blanksAllowed {
			return line, nil
		}
	}
}

// ReadLine reads the next line from stdin. Trailing whitespace is removed.
func (ir *InteractiveReader) ReadLine() (string, error) {
	for {
		line, err := ir.rl.Readline()
		if err != nil && (err != io.EOF || line == "") {
			if err == readline.ErrInterrupt {
				return "", io.EOF
			}
			return "", err
		}

		line = strings.TrimRight(line, " \t\r\n")

		if line != "" || ir.blanksAllowed {
			return line, nil
		}
	}
}

// AllowBlank sets whether blank lines are returned. By default they are not.
func (dr *DirectReader) AllowBlank(allow bool) {
	dr.blanksAllowed = allow
}

// AllowBlank sets whether blank lines are returned. By default they are not.
func (ir *InteractiveReader) AllowBlank(allow bool) {
	ir.blanksAllowed = allow
}

// SetPrompt updates the prompt to the given text.
func (dr *DirectReader) SetPrompt(p string) {
	dr.prompt = p
}

// SetPrompt updates the prompt to the given text.
func (ir *InteractiveReader) SetPrompt(p string) {
	ir.prompt = p
	ir.rl.SetPrompt(p)
}

// GetPrompt gets the current prompt.
func (ir *InteractiveReader) GetPrompt() string {
	return ir.prompt
}
