package binf

import (
	"fmt"
	"io"

	"github.com/dekarrin/parselet"
)

// Element shapes in a parse stream. They share nothing with value tags.
const (
	shapeNil uint32 = iota
	shapeToken
	shapeLiteral
	shapeParent
	shapeLeaf
	shapeSpacing
	shapeNewline
	shapeError
)

// ParseOutStream writes parse trees. Tokens are written as positions only, so
// the text they were parsed from is needed to read the tree back.
type ParseOutStream struct {
	out  *OutStream
	lang *parselet.Language
}

// NewParseOutStream creates a ParseOutStream writing trees of lang to w.
func NewParseOutStream(w io.Writer, lang *parselet.Language) *ParseOutStream {
	return &ParseOutStream{out: NewOutStream(w), lang: lang}
}

// WriteHeader writes the stream header.
func (s *ParseOutStream) WriteHeader() error {
	return writeHeader(s.out, s.lang)
}

// Flush writes any buffered data.
func (s *ParseOutStream) Flush() error {
	return s.out.Flush()
}

// WriteParseNode writes pn and everything under it.
func (s *ParseOutStream) WriteParseNode(pn parselet.ParseNode) error {
	if pn == nil {
		return s.out.WriteUInt(shapeNil)
	}
	return s.writeElement(pn)
}

func (s *ParseOutStream) parseletID(pl parselet.Parselet) (uint32, error) {
	if pl == nil {
		return 0, nil
	}
	if pl.Language() != s.lang {
		return 0, fmt.Errorf("%w: %s is not part of %s", ErrUnknownParselet, pl, s.lang.Name)
	}
	return uint32(pl.ID()), nil
}

func (s *ParseOutStream) writeElement(e parselet.Element) error {
	out := s.out

	switch te := e.(type) {
	case nil:
		return out.WriteUInt(shapeNil)
	case parselet.StringToken:
		out.WriteUInt(shapeToken)
		out.WriteInt(te.Start())
		return out.WriteUInt(uint32(te.Len()))
	case parselet.Literal:
		out.WriteUInt(shapeLiteral)
		return out.WriteString(string(te))
	case *parselet.ErrorNode:
		out.WriteUInt(shapeError)
		out.WriteInt(te.StartIndex())
		return out.WriteUInt(uint32(te.Len()))
	case *parselet.SpacingNode:
		id, err := s.parseletID(te.Parselet())
		if err != nil {
			return err
		}
		text, formatted := te.Text()
		out.WriteUInt(shapeSpacing)
		out.WriteUInt(id)
		out.WriteBool(formatted)
		return out.WriteString(text)
	case *parselet.NewlineNode:
		id, err := s.parseletID(te.Parselet())
		if err != nil {
			return err
		}
		text, level, formatted := te.Text()
		out.WriteUInt(shapeNewline)
		out.WriteUInt(id)
		out.WriteBool(formatted)
		out.WriteString(text)
		return out.WriteUInt(uint32(level))
	case *parselet.LeafNode:
		id, err := s.parseletID(te.Parselet())
		if err != nil {
			return err
		}
		out.WriteUInt(shapeLeaf)
		out.WriteUInt(id)
		out.WriteInt(te.StartIndex())
		v, explicit := te.ExplicitValue()
		out.WriteBool(explicit)
		if explicit {
			if err := writeValue(out, s.lang, v); err != nil {
				return err
			}
		}
		return s.writeElement(te.Child())
	case *parselet.ParentNode:
		id, err := s.parseletID(te.Parselet())
		if err != nil {
			return err
		}
		children := te.Children()
		out.WriteUInt(shapeParent)
		out.WriteUInt(id)
		out.WriteInt(te.StartIndex())
		if err := out.WriteUInt(uint32(len(children))); err != nil {
			return err
		}
		for _, c := range children {
			if err := s.writeElement(c); err != nil {
				return err
			}
		}
		return out.err
	default:
		return fmt.Errorf("cannot write parse element of type %T", e)
	}
}

// ParseInStream reads parse trees written by a ParseOutStream.
type ParseInStream struct {
	in       *InStream
	lang     *parselet.Language
	text     *parselet.Input
	offset   int
	problems []string
}

// NewParseInStream creates a ParseInStream reading from r. text is the input
// the trees were parsed from. If lang is nil, ReadHeader finds the language
// from the registry.
func NewParseInStream(r io.Reader, lang *parselet.Language, text *parselet.Input) *ParseInStream {
	return &ParseInStream{in: NewInStream(r), lang: lang, text: text}
}

// Language returns the language trees are read with.
func (s *ParseInStream) Language() *parselet.Language {
	return s.lang
}

// Problems returns the inconsistencies noticed while reading that were not
// bad enough to stop it, such as tokens that do not pick up where the one
// before left off.
func (s *ParseInStream) Problems() []string {
	return s.problems
}

func (s *ParseInStream) problem(format string, a ...any) {
	s.problems = append(s.problems, fmt.Sprintf("byte %d: ", s.in.Offset())+fmt.Sprintf(format, a...))
}

// ReadHeader reads the stream header and settles the language.
func (s *ParseInStream) ReadHeader() (Header, error) {
	h, err := readHeader(s.in)
	if err != nil {
		return h, err
	}
	s.lang, err = resolveLanguage(h, s.lang)
	return h, err
}

// ReadParseNode reads one tree and works out its semantic values. It returns
// nil if a nil tree was written.
func (s *ParseInStream) ReadParseNode() (parselet.ParseNode, error) {
	if s.lang == nil {
		return nil, fmt.Errorf("stream language not known; read the header first")
	}
	s.offset = 0
	e, err := s.readElement()
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	pn, ok := e.(parselet.ParseNode)
	if !ok {
		return nil, fmt.Errorf("%w: stream holds a bare %T, not a parse node", ErrCorrupt, e)
	}
	parselet.Rebuild(pn)
	return pn, nil
}

func (s *ParseInStream) readParselet() (parselet.Parselet, error) {
	id, err := s.in.ReadUInt()
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, nil
	}
	pl := s.lang.ParseletByID(int(id))
	if pl == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownParselet, id)
	}
	return pl, nil
}

// readSpan reads a start and length and checks them against the text.
func (s *ParseInStream) readSpan() (int, int, error) {
	start, err := s.in.ReadInt()
	if err != nil {
		return 0, 0, err
	}
	length, err := s.in.ReadUInt()
	if err != nil {
		return 0, 0, err
	}
	end := start + int(length)
	if start < 0 {
		return 0, 0, fmt.Errorf("%w: negative token start %d", ErrCorrupt, start)
	}
	if length > 0 {
		if _, ok := s.text.CharAt(end - 1); !ok {
			return 0, 0, fmt.Errorf("%w: token %d-%d runs past the end of the text", ErrCorrupt, start, end)
		}
	}
	if start != s.offset {
		s.problem("current index not updated properly: token starts at %d, expected %d", start, s.offset)
	}
	s.offset = end
	return start, end, nil
}

func (s *ParseInStream) readElement() (parselet.Element, error) {
	shape, err := s.in.ReadUInt()
	if err != nil {
		return nil, err
	}

	switch shape {
	case shapeNil:
		return nil, nil
	case shapeToken:
		start, end, err := s.readSpan()
		if err != nil {
			return nil, err
		}
		return parselet.NewToken(s.text, start, end), nil
	case shapeLiteral:
		str, err := s.in.ReadString()
		if err != nil {
			return nil, err
		}
		return parselet.Literal(str), nil
	case shapeError:
		start, end, err := s.readSpan()
		if err != nil {
			return nil, err
		}
		return parselet.NewErrorNode(s.text, start, end, nil), nil
	case shapeSpacing:
		pl, err := s.readParselet()
		if err != nil {
			return nil, err
		}
		formatted, err := s.in.ReadBool()
		if err != nil {
			return nil, err
		}
		text, err := s.in.ReadString()
		if err != nil {
			return nil, err
		}
		n := parselet.NewSpacingNode(pl)
		if formatted {
			n.SetText(text)
		}
		return n, nil
	case shapeNewline:
		pl, err := s.readParselet()
		if err != nil {
			return nil, err
		}
		formatted, err := s.in.ReadBool()
		if err != nil {
			return nil, err
		}
		text, err := s.in.ReadString()
		if err != nil {
			return nil, err
		}
		level, err := s.in.ReadUInt()
		if err != nil {
			return nil, err
		}
		n := parselet.NewNewlineNode(pl)
		if formatted {
			n.SetText(text, int(level))
		}
		return n, nil
	case shapeLeaf:
		pl, err := s.readParselet()
		if err != nil {
			return nil, err
		}
		start, err := s.in.ReadInt()
		if err != nil {
			return nil, err
		}
		explicit, err := s.in.ReadBool()
		if err != nil {
			return nil, err
		}
		var v any
		if explicit {
			if v, err = readValue(s.in, s.lang); err != nil {
				return nil, err
			}
		}
		child, err := s.readElement()
		if err != nil {
			return nil, err
		}
		n := parselet.NewLeafNodeAt(pl, start, child)
		if explicit {
			n.SetSemantic(v)
		}
		return n, nil
	case shapeParent:
		pl, err := s.readParselet()
		if err != nil {
			return nil, err
		}
		start, err := s.in.ReadInt()
		if err != nil {
			return nil, err
		}
		count, err := s.in.ReadUInt()
		if err != nil {
			return nil, err
		}
		if count > maxStringBytes {
			return nil, fmt.Errorf("%w: child count %d too large", ErrCorrupt, count)
		}
		children := make([]parselet.Element, 0, min(int(count), readChunk))
		for i := uint32(0); i < count; i++ {
			c, err := s.readElement()
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		return parselet.NewParentNodeAt(pl, start, children), nil
	default:
		return nil, fmt.Errorf("%w: unknown element shape %d at byte %d", ErrCorrupt, shape, s.in.Offset())
	}
}

// EncodeParse writes a header and pn to w.
func EncodeParse(w io.Writer, lang *parselet.Language, pn parselet.ParseNode) error {
	s := NewParseOutStream(w, lang)
	if err := s.WriteHeader(); err != nil {
		return err
	}
	if err := s.WriteParseNode(pn); err != nil {
		return err
	}
	return s.Flush()
}

// DecodeParse reads a tree written by EncodeParse over text. lang may be nil
// to look the language up by the header's extension. Problems noticed while
// reading are returned alongside the tree.
func DecodeParse(r io.Reader, lang *parselet.Language, text *parselet.Input) (parselet.ParseNode, []string, error) {
	s := NewParseInStream(r, lang, text)
	if _, err := s.ReadHeader(); err != nil {
		return nil, nil, err
	}
	pn, err := s.ReadParseNode()
	if err != nil {
		return nil, s.Problems(), err
	}
	return pn, s.Problems(), nil
}
