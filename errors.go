package parselet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dekarrin/parselet/internal/source"
)

// file errors.go contains the error values produced by parsing, generating,
// and language setup.

// Error codes used as message templates in ParseErrors. Each takes the
// parselet's description as its only argument.
const (
	CodeExpected        = "Expected: %s"
	CodeExpectedOneOf   = "Expected one of: %s"
	CodeExpectedRepeat  = "Expecting one or more of %s"
	CodeNotExpecting    = "Not expecting: %s"
	CodeUnexpectedText  = "Unexpected text after %s"
	CodeExpectedEnd     = "Expected end of input"
	CodeRejected        = "%s"
	CodeReadError       = "Could not read input: %s"
	codeLeftRecursion   = "left recursion in %s"
	maxErrorsByDefault  = 8
	maxDescriptionWidth = 60
)

var (
	// ErrUnsupported is the panic value for operations a node does not
	// support, such as setting the semantic value of a formatting node.
	ErrUnsupported = errors.New("operation not supported")

	// ErrNoParseNode is returned when an operation needs the parse node a
	// semantic value came from and it has none.
	ErrNoParseNode = errors.New("semantic value has no parse node")

	// ErrNotInTree is returned when a parse node cannot be found in the tree
	// it is supposed to be replaced in.
	ErrNotInTree = errors.New("parse node is not part of the tree")

	// ErrUnknownLanguage is returned when no language is registered for a
	// file extension.
	ErrUnknownLanguage = errors.New("no language registered for extension")
)

// ParseError is a failure to match input. It carries where the failed match
// started, the furthest position it got to, and optionally the value that had
// been built before the failure.
type ParseError struct {
	// Parselet is the parselet that reported the error.
	Parselet Parselet

	// Code is the message template; Args fill it.
	Code string
	Args []any

	// Start is where the failed match began and End is the furthest index it
	// reached.
	Start int
	End   int

	// PartialValue is the parse tree built before the failure. It is only
	// populated when the parse was asked for partial values.
	PartialValue ParseNode

	// Unparsed covers the input after the partial value when PartialValue is
	// set by a top-level parse.
	Unparsed *ErrorNode

	// Continuation is set when PartialValue is a complete value that was
	// followed by the failed start of another repetition.
	Continuation bool

	// EOF is set when the failure happened because the input ran out.
	EOF bool

	// Cause is the error of the child that made this one fail.
	Cause *ParseError

	// Others holds errors that were equally far along as this one. Only the
	// error returned from a top-level parse has them.
	Others []*ParseError
}

// Message returns the error's message without position information.
func (e *ParseError) Message() string {
	if len(e.Args) == 0 {
		return e.Code
	}
	return fmt.Sprintf(e.Code, e.Args...)
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("at index %d: %s", e.End, e.Message()))
	for _, o := range e.Others {
		sb.WriteString("; ")
		sb.WriteString(o.Message())
	}
	return sb.String()
}

// FullMessage gives the error along with the offending source line and a
// caret under the position the error was found at.
func (e *ParseError) FullMessage(txt *source.Text) string {
	line, col := txt.LineCol(e.End)

	var sb strings.Builder
	sb.WriteString(txt.Cursor(e.End))
	sb.WriteRune('\n')
	if txt.Name() != "" {
		sb.WriteString(txt.Name())
		sb.WriteRune(':')
	}
	sb.WriteString(fmt.Sprintf("%d:%d: syntax error: %s", line, col, e.Message()))
	for _, o := range e.Others {
		sb.WriteString("\n    or: ")
		sb.WriteString(o.Message())
	}
	return sb.String()
}

// withPartial returns a copy of e whose partial value is pn.
func (e *ParseError) withPartial(pn ParseNode, continuation bool) *ParseError {
	cp := *e
	cp.PartialValue = pn
	cp.Continuation = continuation
	return &cp
}

// isBetterError returns whether e1 is a better error to report than e2. The
// error that got further wins; ties go to the one that started earlier.
func isBetterError(e1, e2 *ParseError) bool {
	if e2 == nil {
		return true
	}
	if e1.End != e2.End {
		return e1.End > e2.End
	}
	return e1.Start < e2.Start
}

func equallyGood(e1, e2 *ParseError) bool {
	return e1.End == e2.End && e1.Start == e2.Start
}

// GenerateError is a failure to produce text for a semantic value.
type GenerateError struct {
	// Parselet is the parselet that could not generate the value.
	Parselet Parselet

	// Value is the value it was asked to generate.
	Value any

	// Message describes the failure.
	Message string

	// Progress is the number of characters generated before the failure. It
	// ranks errors when every alternative of a choice fails.
	Progress int

	// Partial is set when generating a list stopped part of the way through.
	Partial *PartialArrayResult

	// Cause is the error of the child that made this one fail.
	Cause *GenerateError
}

func (e *GenerateError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("cannot generate %s: %s", describe(e.Parselet), e.Message))
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap gives the cause, if there is one.
func (e *GenerateError) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// PartialArrayResult records how far generation of a list got before one of
// its elements failed.
type PartialArrayResult struct {
	// Consumed is the number of list elements generated.
	Consumed int

	// Node holds the text generated for those elements.
	Node ParseNode
}

// GrammarError is a problem found with a grammar while initializing its
// Language.
type GrammarError struct {
	Parselet Parselet
	msg      string
}

func (e *GrammarError) Error() string {
	if e.Parselet == nil {
		return "grammar: " + e.msg
	}
	return fmt.Sprintf("grammar: %s: %s", describe(e.Parselet), e.msg)
}

func grammarErrorf(pl Parselet, format string, a ...any) *GrammarError {
	return &GrammarError{Parselet: pl, msg: fmt.Sprintf(format, a...)}
}

func describe(pl Parselet) string {
	if pl == nil {
		return "<nil>"
	}
	s := pl.String()
	if len(s) > maxDescriptionWidth {
		s = s[:maxDescriptionWidth-3] + "..."
	}
	return s
}
