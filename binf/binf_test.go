package binf

import (
	"bytes"
	"math"
	"runtime"
	"testing"

	"github.com/dekarrin/parselet"
	"github.com/dekarrin/parselet/lang/minic"
	"github.com/dekarrin/parselet/lang/sig"
	"github.com/stretchr/testify/assert"
)

const sampleProgram = `// counts down
var n = 10;
func tick(x) {
    return x - 1;
}
while (n > 0) {
    n = tick(n);
}
print("done", n);
`

func Test_UInt(t *testing.T) {
	testCases := []struct {
		name      string
		value     uint32
		expectLen int
	}{
		{name: "zero", value: 0, expectLen: 1},
		{name: "one byte max", value: 127, expectLen: 1},
		{name: "two bytes", value: 128, expectLen: 2},
		{name: "max", value: math.MaxUint32, expectLen: 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			var buf bytes.Buffer
			out := NewOutStream(&buf)
			assert.NoError(out.WriteUInt(tc.value))
			assert.NoError(out.Flush())
			assert.Equal(tc.expectLen, buf.Len())

			actual, err := NewInStream(&buf).ReadUInt()
			assert.NoError(err)
			assert.Equal(tc.value, actual)
		})
	}
}

func Test_InStream_Corrupt(t *testing.T) {
	testCases := []struct {
		name  string
		input []byte
		read  func(s *InStream) error
	}{
		{
			name:  "varint too long",
			input: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01},
			read:  func(s *InStream) error { _, err := s.ReadUInt(); return err },
		},
		{
			name:  "varint past 32 bits",
			input: []byte{0xff, 0xff, 0xff, 0xff, 0x7f},
			read:  func(s *InStream) error { _, err := s.ReadUInt(); return err },
		},
		{
			name:  "string cut short",
			input: []byte{0x05, 'a', 'b'},
			read:  func(s *InStream) error { _, err := s.ReadString(); return err },
		},
		{
			name:  "string longer than the stream",
			input: []byte{0x80, 0x80, 0x80, 0x10, 'a', 'b'},
			read:  func(s *InStream) error { _, err := s.ReadString(); return err },
		},
		{
			name:  "invalid utf-8",
			input: []byte{0x02, 0xc3, 0x28},
			read:  func(s *InStream) error { _, err := s.ReadString(); return err },
		},
		{
			name:  "bad bool",
			input: []byte{0x02},
			read:  func(s *InStream) error { _, err := s.ReadBool(); return err },
		},
		{
			name:  "empty",
			input: nil,
			read:  func(s *InStream) error { _, err := s.ReadDouble(); return err },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			err := tc.read(NewInStream(bytes.NewReader(tc.input)))
			assert.ErrorIs(err, ErrCorrupt)
		})
	}
}

func Test_Model_Scalars(t *testing.T) {
	testCases := []struct {
		name  string
		value any
	}{
		{name: "nil", value: nil},
		{name: "string", value: "héllo"},
		{name: "empty string", value: ""},
		{name: "true", value: true},
		{name: "false", value: false},
		{name: "int", value: -42},
		{name: "uint", value: uint(7)},
		{name: "long", value: int64(math.MinInt64)},
		{name: "float", value: float32(1.5)},
		{name: "double", value: 2.25},
		{name: "char", value: 'λ'},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			var buf bytes.Buffer
			assert.NoError(EncodeModel(&buf, minic.Language(), tc.value))

			actual, lang, err := DecodeModel(&buf, nil)
			assert.NoError(err)
			assert.Same(minic.Language(), lang)
			assert.Equal(tc.value, actual)
		})
	}
}

func Test_Model_Program(t *testing.T) {
	assert := assert.New(t)
	lang := minic.Language()

	v, err := lang.ParseValue(sampleProgram)
	if !assert.NoError(err) {
		return
	}

	var buf bytes.Buffer
	assert.NoError(EncodeModel(&buf, lang, v))

	actual, _, err := DecodeModel(&buf, lang)
	if !assert.NoError(err) {
		return
	}
	assert.True(parselet.NodesEqual(v, actual))

	// the decoded value is wired up well enough to print
	expect, err := lang.Print(v)
	assert.NoError(err)
	printed, err := lang.Print(actual)
	assert.NoError(err)
	assert.Equal(expect, printed)
}

func Test_Model_ListElementTags(t *testing.T) {
	assert := assert.New(t)
	lang := minic.Language()

	// a list holding nodes of two types and a scalar
	v, err := lang.ParseValue("x = 1; f(); y = 2;")
	if !assert.NoError(err) {
		return
	}
	body := v.(*parselet.Node).Get("body").(*parselet.NodeList)
	body.Add("loose")

	var buf bytes.Buffer
	assert.NoError(EncodeModel(&buf, lang, body))

	actual, _, err := DecodeModel(&buf, lang)
	if !assert.NoError(err) {
		return
	}
	list, ok := actual.(*parselet.NodeList)
	if !assert.True(ok) {
		return
	}
	assert.Equal(4, list.Len())
	assert.True(parselet.NodesEqual(body, list))
	assert.Same(body.Origin(), list.Origin())
}

func Test_Header_Errors(t *testing.T) {
	header := func(ext, fingerprint string) *bytes.Buffer {
		var buf bytes.Buffer
		out := NewOutStream(&buf)
		out.WriteString(ext)
		out.WriteString(fingerprint)
		out.WriteUInt(TagNull)
		out.Flush()
		return &buf
	}

	testCases := []struct {
		name   string
		input  *bytes.Buffer
		lang   *parselet.Language
		expect error
	}{
		{
			name:   "unknown extension",
			input:  header("nope", "0"),
			expect: parselet.ErrUnknownLanguage,
		},
		{
			name:   "stale fingerprint",
			input:  header(minic.Extension, "0000000000000000"),
			expect: ErrGrammarMismatch,
		},
		{
			name:   "other language",
			input:  header(minic.Extension, minic.Language().Fingerprint()),
			lang:   sig.Language(),
			expect: ErrGrammarMismatch,
		},
		{
			name:   "truncated",
			input:  bytes.NewBuffer([]byte{0x02, 'm'}),
			expect: ErrCorrupt,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			_, _, err := DecodeModel(tc.input, tc.lang)
			assert.ErrorIs(err, tc.expect)
		})
	}
}

func Test_Model_Truncated(t *testing.T) {
	assert := assert.New(t)
	lang := minic.Language()

	v, err := lang.ParseValue(sampleProgram)
	if !assert.NoError(err) {
		return
	}
	var buf bytes.Buffer
	assert.NoError(EncodeModel(&buf, lang, v))

	cut := buf.Bytes()[:buf.Len()-1]
	_, _, err = DecodeModel(bytes.NewReader(cut), lang)
	assert.ErrorIs(err, ErrCorrupt)
}

func Test_Parse_RoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "one statement", input: "x = 1;"},
		{name: "program", input: sampleProgram},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			lang := minic.Language()

			pn, err := lang.Parse(tc.input)
			if !assert.NoError(err) {
				return
			}

			var buf bytes.Buffer
			assert.NoError(EncodeParse(&buf, lang, pn))

			actual, problems, err := DecodeParse(&buf, nil, parselet.NewStringInput(tc.input))
			if !assert.NoError(err) {
				return
			}
			assert.Empty(problems)
			assert.Equal(tc.input, parselet.Format(actual))
			assert.True(parselet.TreesEqual(pn, actual))
			assert.True(parselet.NodesEqual(pn.Semantic(), actual.Semantic()))
			if n, ok := actual.Semantic().(*parselet.Node); ok {
				assert.Same(actual, n.ParseNode())
			}
		})
	}
}

func Test_Parse_GeneratedTree(t *testing.T) {
	assert := assert.New(t)
	lang := minic.Language()

	v, err := lang.ParseValue("if(a){b=1;}")
	if !assert.NoError(err) {
		return
	}
	pn, err := lang.Generate(nil, v)
	if !assert.NoError(err) {
		return
	}
	expect := parselet.Format(pn)

	var buf bytes.Buffer
	assert.NoError(EncodeParse(&buf, lang, pn))

	actual, problems, err := DecodeParse(&buf, lang, parselet.NewStringInput(""))
	if !assert.NoError(err) {
		return
	}
	assert.Empty(problems)
	assert.Equal(expect, parselet.Format(actual))
	assert.True(parselet.NodesEqual(v, actual.Semantic()))
}

func Test_Parse_TokenOutOfPlace(t *testing.T) {
	assert := assert.New(t)
	lang := minic.Language()
	in := parselet.NewStringInput("abc")

	pn := parselet.NewParentNodeAt(lang.Start(), 0, []parselet.Element{
		nil,
		parselet.NewToken(in, 1, 2),
	})

	var buf bytes.Buffer
	assert.NoError(EncodeParse(&buf, lang, pn))

	actual, problems, err := DecodeParse(&buf, lang, in)
	if !assert.NoError(err) {
		return
	}
	assert.Equal("b", parselet.Format(actual))
	if assert.Len(problems, 1) {
		assert.Contains(problems[0], "current index not updated properly")
	}
}

func Test_Parse_TokenPastEnd(t *testing.T) {
	assert := assert.New(t)
	lang := minic.Language()

	pn, err := lang.Parse("x = 1;")
	if !assert.NoError(err) {
		return
	}
	var buf bytes.Buffer
	assert.NoError(EncodeParse(&buf, lang, pn))

	_, _, err = DecodeParse(&buf, lang, parselet.NewStringInput("x"))
	assert.ErrorIs(err, ErrCorrupt)
}

func Test_Parse_CountLargerThanStream(t *testing.T) {
	testCases := []struct {
		name  string
		write func(out *OutStream, lang *parselet.Language)
	}{
		{
			name:  "child count",
			write: func(out *OutStream, lang *parselet.Language) {
				out.WriteUInt(shapeParent)
				out.WriteUInt(uint32(lang.Start().ID()))
				out.WriteInt(0)
				out.WriteUInt(60_000_000)
			},
		},
		{
			name:  "literal length",
			write: func(out *OutStream, lang *parselet.Language) {
				out.WriteUInt(shapeLiteral)
				out.WriteUInt(60_000_000)
				out.write([]byte("x = 1;"))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			lang := minic.Language()

			var buf bytes.Buffer
			out := NewOutStream(&buf)
			assert.NoError(writeHeader(out, lang))
			tc.write(out, lang)
			assert.NoError(out.Flush())

			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			_, _, err := DecodeParse(&buf, lang, parselet.NewStringInput(""))
			runtime.ReadMemStats(&after)

			assert.ErrorIs(err, ErrCorrupt)
			assert.Less(after.TotalAlloc-before.TotalAlloc, uint64(16<<20))
		})
	}
}
