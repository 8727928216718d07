package binf

import (
	"fmt"
	"io"

	"github.com/dekarrin/parselet"
)

// Header is the start of every stream.
type Header struct {
	// Extension is the file extension of the language the stream holds
	// values of.
	Extension string

	// Fingerprint is the fingerprint of that language's grammar.
	Fingerprint string
}

func writeHeader(out *OutStream, lang *parselet.Language) error {
	if err := out.WriteString(lang.Extension); err != nil {
		return err
	}
	return out.WriteString(lang.Fingerprint())
}

func readHeader(in *InStream) (Header, error) {
	var h Header
	var err error
	if h.Extension, err = in.ReadString(); err != nil {
		return h, fmt.Errorf("reading header extension: %w", err)
	}
	if h.Fingerprint, err = in.ReadString(); err != nil {
		return h, fmt.Errorf("reading header fingerprint: %w", err)
	}
	return h, nil
}

// resolveLanguage checks h against lang, or looks lang up by the extension in
// h if lang is nil.
func resolveLanguage(h Header, lang *parselet.Language) (*parselet.Language, error) {
	if lang == nil {
		var err error
		lang, err = parselet.LookupLanguage(h.Extension)
		if err != nil {
			return nil, err
		}
	} else if h.Extension != lang.Extension {
		return nil, fmt.Errorf("%w: stream is for %q, not %q", ErrGrammarMismatch, h.Extension, lang.Extension)
	}
	if h.Fingerprint != lang.Fingerprint() {
		return nil, fmt.Errorf("%w: %s", ErrGrammarMismatch, lang.Name)
	}
	return lang, nil
}

// ModelOutStream writes semantic values.
type ModelOutStream struct {
	out  *OutStream
	lang *parselet.Language
}

// NewModelOutStream creates a ModelOutStream writing values of lang to w.
func NewModelOutStream(w io.Writer, lang *parselet.Language) *ModelOutStream {
	return &ModelOutStream{out: NewOutStream(w), lang: lang}
}

// WriteHeader writes the stream header.
func (s *ModelOutStream) WriteHeader() error {
	return writeHeader(s.out, s.lang)
}

// Flush writes any buffered data.
func (s *ModelOutStream) Flush() error {
	return s.out.Flush()
}

// WriteValue writes v and everything reachable from it.
func (s *ModelOutStream) WriteValue(v any) error {
	return writeValue(s.out, s.lang, v)
}

func writeValue(out *OutStream, lang *parselet.Language, v any) error {
	switch tv := v.(type) {
	case nil:
		return out.WriteUInt(TagNull)
	case string:
		if err := out.WriteUInt(TagString); err != nil {
			return err
		}
		return out.WriteString(tv)
	case bool:
		if tv {
			return out.WriteUInt(TagTrue)
		}
		return out.WriteUInt(TagFalse)
	case int:
		if err := out.WriteUInt(TagInt); err != nil {
			return err
		}
		return out.WriteInt(tv)
	case uint:
		if err := out.WriteUInt(TagUint); err != nil {
			return err
		}
		return out.WriteULong(uint64(tv))
	case int64:
		if err := out.WriteUInt(TagLong); err != nil {
			return err
		}
		return out.WriteLong(tv)
	case float32:
		if err := out.WriteUInt(TagFloat); err != nil {
			return err
		}
		return out.WriteFloat(tv)
	case float64:
		if err := out.WriteUInt(TagDouble); err != nil {
			return err
		}
		return out.WriteDouble(tv)
	case rune:
		if err := out.WriteUInt(TagChar); err != nil {
			return err
		}
		return out.WriteChar(tv)
	case *parselet.Node:
		id, err := nodeID(lang, tv)
		if err != nil {
			return err
		}
		if err := out.WriteUInt(id); err != nil {
			return err
		}
		return writeProps(out, lang, tv)
	case *parselet.NodeList:
		return writeList(out, lang, tv)
	default:
		return fmt.Errorf("cannot write value of type %T", v)
	}
}

// nodeID gives the id of the sequence n is read back with.
func nodeID(lang *parselet.Language, n *parselet.Node) (uint32, error) {
	pl := n.Origin()
	if pl == nil || pl.Language() != lang {
		pl = lang.ParseletForType(n.Type())
	}
	if pl == nil {
		return 0, fmt.Errorf("%w: no parselet in %s produces %s", ErrUnknownParselet, lang.Name, n.Type().Name)
	}
	return uint32(pl.ID()), nil
}

func writeProps(out *OutStream, lang *parselet.Language, n *parselet.Node) error {
	for _, pv := range n.Values() {
		if err := writeValue(out, lang, pv); err != nil {
			return err
		}
	}
	return nil
}

// writeList writes a list as its origin id, its element count, and the id
// most of its node elements share, followed by the elements. Elements with
// that shared id are tagged TagListElement instead of repeating it.
func writeList(out *OutStream, lang *parselet.Language, l *parselet.NodeList) error {
	var origin uint32
	if pl := l.Origin(); pl != nil && pl.Language() == lang {
		origin = uint32(pl.ID())
	}

	items := l.Items()
	var elemID uint32
	for _, it := range items {
		if n, ok := it.(*parselet.Node); ok {
			id, err := nodeID(lang, n)
			if err != nil {
				return err
			}
			elemID = id
			break
		}
	}

	if err := out.WriteUInt(TagList); err != nil {
		return err
	}
	if err := out.WriteUInt(origin); err != nil {
		return err
	}
	if err := out.WriteUInt(uint32(len(items))); err != nil {
		return err
	}
	if err := out.WriteUInt(elemID); err != nil {
		return err
	}

	for _, it := range items {
		if n, ok := it.(*parselet.Node); ok && elemID != 0 {
			id, err := nodeID(lang, n)
			if err != nil {
				return err
			}
			if id == elemID {
				if err := out.WriteUInt(TagListElement); err != nil {
					return err
				}
				if err := writeProps(out, lang, n); err != nil {
					return err
				}
				continue
			}
		}
		if err := writeValue(out, lang, it); err != nil {
			return err
		}
	}
	return nil
}

// ModelInStream reads semantic values written by a ModelOutStream.
type ModelInStream struct {
	in   *InStream
	lang *parselet.Language
}

// NewModelInStream creates a ModelInStream reading from r. If lang is nil,
// ReadHeader finds the language from the registry; otherwise the header must
// be for lang.
func NewModelInStream(r io.Reader, lang *parselet.Language) *ModelInStream {
	return &ModelInStream{in: NewInStream(r), lang: lang}
}

// Language returns the language values are read with. It is nil until
// ReadHeader succeeds if none was given.
func (s *ModelInStream) Language() *parselet.Language {
	return s.lang
}

// ReadHeader reads the stream header and settles the language.
func (s *ModelInStream) ReadHeader() (Header, error) {
	h, err := readHeader(s.in)
	if err != nil {
		return h, err
	}
	s.lang, err = resolveLanguage(h, s.lang)
	return h, err
}

// ReadValue reads one value.
func (s *ModelInStream) ReadValue() (any, error) {
	if s.lang == nil {
		return nil, fmt.Errorf("stream language not known; read the header first")
	}
	return readValue(s.in, s.lang)
}

func readValue(in *InStream, lang *parselet.Language) (any, error) {
	tag, err := in.ReadUInt()
	if err != nil {
		return nil, err
	}
	return readTagged(in, lang, tag, 0)
}

// readTagged reads the value introduced by tag. elemID is the shared element
// id of the enclosing list, for TagListElement.
func readTagged(in *InStream, lang *parselet.Language, tag, elemID uint32) (any, error) {
	switch tag {
	case TagNull:
		return nil, nil
	case TagString:
		return in.ReadString()
	case TagTrue:
		return true, nil
	case TagFalse:
		return false, nil
	case TagInt:
		return in.ReadInt()
	case TagUint:
		v, err := in.ReadULong()
		return uint(v), err
	case TagLong:
		return in.ReadLong()
	case TagFloat:
		return in.ReadFloat()
	case TagDouble:
		return in.ReadDouble()
	case TagChar:
		return in.ReadChar()
	case TagList:
		return readList(in, lang)
	case TagListElement:
		if elemID == 0 {
			return nil, fmt.Errorf("%w: list element tag outside of a list at byte %d", ErrCorrupt, in.Offset())
		}
		return readNode(in, lang, elemID)
	}
	if tag < parselet.FirstID {
		return nil, fmt.Errorf("%w: reserved tag %d at byte %d", ErrCorrupt, tag, in.Offset())
	}
	return readNode(in, lang, tag)
}

func readNode(in *InStream, lang *parselet.Language, id uint32) (*parselet.Node, error) {
	seq, ok := lang.ParseletByID(int(id)).(*parselet.Sequence)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownParselet, id)
	}
	n := seq.NewNode()
	if n == nil {
		return nil, fmt.Errorf("%w: %d produces no node", ErrUnknownParselet, id)
	}
	for _, prop := range n.Type().Props {
		v, err := readValue(in, lang)
		if err != nil {
			return nil, fmt.Errorf("reading %s.%s: %w", n.Type().Name, prop, err)
		}
		n.Set(prop, v)
	}
	return n, nil
}

func readList(in *InStream, lang *parselet.Language) (*parselet.NodeList, error) {
	origin, err := in.ReadUInt()
	if err != nil {
		return nil, err
	}
	count, err := in.ReadUInt()
	if err != nil {
		return nil, err
	}
	elemID, err := in.ReadUInt()
	if err != nil {
		return nil, err
	}

	var originPl parselet.Parselet
	if origin != 0 {
		originPl = lang.ParseletByID(int(origin))
		if originPl == nil {
			return nil, fmt.Errorf("%w: list origin %d", ErrUnknownParselet, origin)
		}
	}

	l := parselet.NewNodeListFrom(originPl)
	for i := uint32(0); i < count; i++ {
		tag, err := in.ReadUInt()
		if err != nil {
			return nil, err
		}
		v, err := readTagged(in, lang, tag, elemID)
		if err != nil {
			return nil, fmt.Errorf("reading list element %d: %w", i, err)
		}
		l.Add(v)
	}
	return l, nil
}

// EncodeModel writes a header and v to w.
func EncodeModel(w io.Writer, lang *parselet.Language, v any) error {
	s := NewModelOutStream(w, lang)
	if err := s.WriteHeader(); err != nil {
		return err
	}
	if err := s.WriteValue(v); err != nil {
		return err
	}
	return s.Flush()
}

// DecodeModel reads a value written by EncodeModel. lang may be nil to look
// the language up by the header's extension.
func DecodeModel(r io.Reader, lang *parselet.Language) (any, *parselet.Language, error) {
	s := NewModelInStream(r, lang)
	if _, err := s.ReadHeader(); err != nil {
		return nil, nil, err
	}
	v, err := s.ReadValue()
	if err != nil {
		return nil, nil, err
	}
	return v, s.lang, nil
}
