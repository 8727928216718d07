// Package binf reads and writes the binary cache format for parselet trees.
//
// Every value in a stream is introduced by an unsigned varint tag. Tags below
// parselet.FirstID are reserved for scalars, lists, and null; any other tag is
// the id of the parselet whose node follows. Unsigned integers use 7 data bits
// per byte with the high bit set on every byte but the last, and never take
// more than 5 bytes. Strings are a byte count followed by that many bytes of
// UTF-8.
//
// A stream opens with a header naming the language by its file extension and
// the fingerprint of its grammar. Readers refuse streams whose fingerprint
// does not match the grammar they have, since parselet ids and property order
// would no longer line up.
package binf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// Reserved tags.
const (
	TagNull uint32 = iota
	TagString
	TagList
	TagListElement
	TagTrue
	TagFalse
	TagInt
	TagUint
	TagLong
	TagFloat
	TagDouble
	TagChar
)

// maxUIntBytes is the most bytes a tag, count, or length may take.
const maxUIntBytes = 5

// maxStringBytes caps string lengths read from a stream so a corrupt length
// cannot ask for gigabytes.
const maxStringBytes = 1 << 26

// readChunk is the most memory taken ahead of the data for a length or count
// read from a stream. Anything bigger grows as the data arrives.
const readChunk = 4096

var (
	// ErrCorrupt is returned when the stream does not hold what the format
	// says it must.
	ErrCorrupt = errors.New("corrupt stream")

	// ErrUnknownParselet is returned when a tag names a parselet the
	// language does not have, or one that cannot carry the value read.
	ErrUnknownParselet = errors.New("unknown parselet id")

	// ErrGrammarMismatch is returned when the header's fingerprint differs
	// from that of the language reading the stream.
	ErrGrammarMismatch = errors.New("stream was written with a different grammar")
)

// OutStream writes the primitive values of the format. Errors are sticky:
// once a write fails, later writes do nothing and return the same error.
type OutStream struct {
	w   *bufio.Writer
	buf []byte
	n   int64
	err error
}

// NewOutStream creates an OutStream writing to w. Flush must be called when
// done.
func NewOutStream(w io.Writer) *OutStream {
	return &OutStream{w: bufio.NewWriter(w)}
}

// Written returns the number of bytes written so far.
func (s *OutStream) Written() int64 {
	return s.n
}

// Flush writes any buffered data to the underlying writer.
func (s *OutStream) Flush() error {
	if s.err != nil {
		return s.err
	}
	s.err = s.w.Flush()
	return s.err
}

func (s *OutStream) write(b []byte) error {
	if s.err != nil {
		return s.err
	}
	n, err := s.w.Write(b)
	s.n += int64(n)
	s.err = err
	return err
}

// WriteUInt writes v as a varint of at most 5 bytes.
func (s *OutStream) WriteUInt(v uint32) error {
	s.buf = binary.AppendUvarint(s.buf[:0], uint64(v))
	return s.write(s.buf)
}

// WriteInt writes a signed integer as a zig-zag varint.
func (s *OutStream) WriteInt(v int) error {
	return s.WriteLong(int64(v))
}

// WriteULong writes an unsigned 64-bit varint.
func (s *OutStream) WriteULong(v uint64) error {
	s.buf = binary.AppendUvarint(s.buf[:0], v)
	return s.write(s.buf)
}

// WriteLong writes a signed 64-bit zig-zag varint.
func (s *OutStream) WriteLong(v int64) error {
	s.buf = binary.AppendVarint(s.buf[:0], v)
	return s.write(s.buf)
}

// WriteFloat writes the 4 bytes of v, big-endian.
func (s *OutStream) WriteFloat(v float32) error {
	s.buf = binary.BigEndian.AppendUint32(s.buf[:0], math.Float32bits(v))
	return s.write(s.buf)
}

// WriteDouble writes the 8 bytes of v, big-endian.
func (s *OutStream) WriteDouble(v float64) error {
	s.buf = binary.BigEndian.AppendUint64(s.buf[:0], math.Float64bits(v))
	return s.write(s.buf)
}

// WriteChar writes a character as its code point.
func (s *OutStream) WriteChar(ch rune) error {
	return s.WriteUInt(uint32(ch))
}

// WriteBool writes a single 0 or 1 byte.
func (s *OutStream) WriteBool(b bool) error {
	var v byte
	if b {
		v = 1
	}
	return s.write([]byte{v})
}

// WriteString writes the byte length of str followed by its UTF-8 bytes.
func (s *OutStream) WriteString(str string) error {
	if err := s.WriteUInt(uint32(len(str))); err != nil {
		return err
	}
	return s.write([]byte(str))
}

// InStream reads the primitive values of the format.
type InStream struct {
	r *bufio.Reader
	n int64
}

// NewInStream creates an InStream reading from r.
func NewInStream(r io.Reader) *InStream {
	return &InStream{r: bufio.NewReader(r)}
}

// Offset returns the number of bytes read so far.
func (s *InStream) Offset() int64 {
	return s.n
}

func (s *InStream) readByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: unexpected end of data at byte %d", ErrCorrupt, s.n)
		}
		return 0, err
	}
	s.n++
	return b, nil
}

func (s *InStream) readFull(b []byte) error {
	n, err := io.ReadFull(s.r, b)
	s.n += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: unexpected end of data at byte %d", ErrCorrupt, s.n)
		}
		return err
	}
	return nil
}

// ReadUInt reads a varint written by WriteUInt.
func (s *InStream) ReadUInt() (uint32, error) {
	var v uint64
	for i := 0; i < maxUIntBytes; i++ {
		b, err := s.readByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			if v > math.MaxUint32 {
				return 0, fmt.Errorf("%w: varint at byte %d overflows 32 bits", ErrCorrupt, s.n)
			}
			return uint32(v), nil
		}
	}
	return 0, fmt.Errorf("%w: varint at byte %d is longer than %d bytes", ErrCorrupt, s.n, maxUIntBytes)
}

// ReadInt reads a value written by WriteInt.
func (s *InStream) ReadInt() (int, error) {
	v, err := s.ReadLong()
	return int(v), err
}

// ReadULong reads a value written by WriteULong.
func (s *InStream) ReadULong() (uint64, error) {
	v, err := binary.ReadUvarint(byteCounter{s})
	if err != nil {
		return 0, s.varintErr(err)
	}
	return v, nil
}

// ReadLong reads a value written by WriteLong.
func (s *InStream) ReadLong() (int64, error) {
	v, err := binary.ReadVarint(byteCounter{s})
	if err != nil {
		return 0, s.varintErr(err)
	}
	return v, nil
}

func (s *InStream) varintErr(err error) error {
	if errors.Is(err, ErrCorrupt) {
		return err
	}
	return fmt.Errorf("%w: bad varint at byte %d: %v", ErrCorrupt, s.n, err)
}

// ReadFloat reads a value written by WriteFloat.
func (s *InStream) ReadFloat() (float32, error) {
	var b [4]byte
	if err := s.readFull(b[:]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b[:])), nil
}

// ReadDouble reads a value written by WriteDouble.
func (s *InStream) ReadDouble() (float64, error) {
	var b [8]byte
	if err := s.readFull(b[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b[:])), nil
}

// ReadChar reads a value written by WriteChar.
func (s *InStream) ReadChar() (rune, error) {
	v, err := s.ReadUInt()
	if err != nil {
		return 0, err
	}
	if v > utf8.MaxRune {
		return 0, fmt.Errorf("%w: %d is not a character", ErrCorrupt, v)
	}
	return rune(v), nil
}

// ReadBool reads a value written by WriteBool.
func (s *InStream) ReadBool() (bool, error) {
	b, err := s.readByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown non-bool value %d at byte %d", ErrCorrupt, b, s.n-1)
	}
}

// ReadString reads a value written by WriteString.
func (s *InStream) ReadString() (string, error) {
	n, err := s.ReadUInt()
	if err != nil {
		return "", err
	}
	if n > maxStringBytes {
		return "", fmt.Errorf("%w: string length %d too large", ErrCorrupt, n)
	}
	b, err := s.readBytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: invalid UTF-8 encoding in string", ErrCorrupt)
	}
	return string(b), nil
}

// readBytes reads n bytes, at most readChunk of them at a time.
func (s *InStream) readBytes(n int) ([]byte, error) {
	b := make([]byte, 0, min(n, readChunk))
	for len(b) < n {
		chunk := min(n-len(b), readChunk)
		b = append(b, make([]byte, chunk)...)
		if err := s.readFull(b[len(b)-chunk:]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// byteCounter lets encoding/binary read from an InStream while keeping its
// offset right.
type byteCounter struct {
	s *InStream
}

func (bc byteCounter) ReadByte() (byte, error) {
	return bc.s.readByte()
}
