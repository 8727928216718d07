package parselet

import (
	"testing"

	"github.com/dekarrin/parselet/internal/util"
	"github.com/stretchr/testify/assert"
)

func Test_SpacingNode_Text(t *testing.T) {
	testCases := []struct {
		name   string
		prev   string
		next   string
		expect string
	}{
		{name: "start of output", prev: "", next: "x", expect: ""},
		{name: "end of output", prev: "x", next: "", expect: ""},
		{name: "between words", prev: "a", next: "b", expect: " "},
		{name: "around operator", prev: "1", next: "+", expect: " "},
		{name: "already spaced", prev: "a ", next: "b", expect: ""},
		{name: "call", prev: "f", next: "(", expect: ""},
		{name: "keyword before paren", prev: "if", next: "(", expect: " "},
		{name: "operator before paren", prev: "=", next: "(", expect: " "},
		{name: "after open paren", prev: "(", next: "a", expect: ""},
		{name: "before close paren", prev: "a", next: ")", expect: ""},
		{name: "before semicolon", prev: "a", next: ";", expect: ""},
		{name: "before comma", prev: "a", next: ",", expect: ""},
		{name: "member access", prev: "a", next: ".", expect: ""},
		{name: "after dot", prev: ".", next: "b", expect: ""},
		{name: "after not", prev: "!", next: "b", expect: ""},
		{name: "index", prev: "a", next: "[", expect: ""},
		{name: "index after call", prev: ")", next: "[", expect: ""},
		{name: "list literal", prev: "=", next: "[", expect: " "},
		{name: "brace then keyword", prev: "}", next: "else", expect: " "},
		{name: "brace then statement", prev: "}", next: "x", expect: "\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			ctx := newFormatContext(nil)
			ctx.keywords = util.KeySetOf([]string{"if", "else"})
			ctx.write(tc.prev)
			ctx.enter(nil, []Element{Literal(tc.next)})

			sp := &SpacingNode{}
			sp.formatTo(ctx)

			assert.Equal(tc.expect, sp.String())
			assert.Equal(tc.prev+tc.expect, ctx.String())
		})
	}
}

func Test_NewlineNode_Text(t *testing.T) {
	testCases := []struct {
		name        string
		prev        string
		next        string
		level       int
		expect      string
		expectLevel int
	}{
		{name: "start of output", prev: "", next: "x", expect: ""},
		{name: "end of output", prev: ";", next: "", level: 2, expect: "\n", expectLevel: 2},
		{name: "same level", prev: ";", next: "x", level: 2, expect: "\n        ", expectLevel: 2},
		{name: "after open brace", prev: "{", next: "x", level: 0, expect: "\n    ", expectLevel: 1},
		{name: "before close brace", prev: ";", next: "}", level: 1, expect: "\n", expectLevel: 0},
		{name: "empty braces", prev: "{", next: "}", level: 1, expect: "\n    ", expectLevel: 1},
		{name: "never negative", prev: ";", next: "}", level: 0, expect: "\n", expectLevel: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			ctx := newFormatContext(nil)
			ctx.level = tc.level
			ctx.write(tc.prev)
			ctx.enter(nil, []Element{Literal(tc.next)})

			nl := &NewlineNode{}
			nl.formatTo(ctx)

			assert.Equal(tc.expect, nl.String())
			assert.Equal(tc.expectLevel, ctx.IndentLevel())
		})
	}
}

func Test_FormatContext_Lookaround(t *testing.T) {
	assert := assert.New(t)

	ctx := newFormatContext(nil)
	ctx.write("return ")
	ctx.write("foo")

	inner := NewParentNode(nil, []Element{&SpacingNode{}, Literal("bar"), Literal("(")})
	ctx.enter(nil, []Element{&NewlineNode{}, inner, Literal("baz")})

	assert.Equal('o', ctx.PrevChar())
	assert.Equal("foo", ctx.PrevWord())
	assert.Equal('b', ctx.NextChar())
	assert.Equal("bar", ctx.NextWord())

	ctx.advance(2)
	assert.Equal(rune(0), ctx.NextChar())
	assert.Equal("", ctx.NextWord())
}

func Test_FormatContext_NextWord_StopsAtSpacing(t *testing.T) {
	testCases := []struct {
		name     string
		children []Element
		expect   string
		nextChar rune
	}{
		{
			name:     "spacing ends the word",
			children: []Element{nil, Literal("else"), &SpacingNode{}, Literal("if")},
			expect:   "else",
			nextChar: 'e',
		},
		{
			name:     "newline ends the word",
			children: []Element{nil, Literal("else"), &NewlineNode{}, Literal("if")},
			expect:   "else",
			nextChar: 'e',
		},
		{
			name:     "leading spacing is skipped",
			children: []Element{nil, &SpacingNode{}, NewParentNode(nil, []Element{Literal("else")}), &SpacingNode{}, Literal("x")},
			expect:   "else",
			nextChar: 'e',
		},
		{
			name:     "word split over literals",
			children: []Element{nil, Literal("el"), Literal("se"), Literal("(")},
			expect:   "else",
			nextChar: 'e',
		},
		{
			name:     "only spacing left",
			children: []Element{nil, &SpacingNode{}},
			expect:   "",
			nextChar: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			ctx := newFormatContext(nil)
			ctx.write("}")
			ctx.enter(nil, tc.children)
			ctx.advance(0)

			assert.Equal(tc.expect, ctx.NextWord())
			assert.Equal(tc.nextChar, ctx.NextChar())
		})
	}
}

func Test_FormatContext_SpacingAfterPrefixOperator(t *testing.T) {
	testCases := []struct {
		name    string
		first   Element
		written string
		expect  string
	}{
		{name: "minus", first: Literal("-"), written: "-", expect: ""},
		{name: "doubled operator", first: Literal("--"), written: "--", expect: ""},
		{name: "word", first: Literal("return"), written: "return", expect: " "},
		{name: "other symbol", first: Literal("="), written: "=", expect: " "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			ctx := newFormatContext(nil)
			ctx.write(tc.written)
			ctx.enter(nil, []Element{tc.first, &SpacingNode{}, Literal("y")})
			ctx.advance(1)

			assert.Equal(tc.expect, ctx.spacingText())
		})
	}
}

func Test_Format_Idempotent(t *testing.T) {
	assert := assert.New(t)
	lang := blockLanguage()

	v, err := lang.ParseValue("{x=1;{y=2;}}")
	if !assert.NoError(err) {
		return
	}
	pn, err := lang.Generate(nil, v)
	if !assert.NoError(err) {
		return
	}

	first := Format(pn)
	assert.Equal("{\n    x = 1;\n    {\n        y = 2;\n    }\n}\n", first)
	assert.Equal(first, Format(pn))
	assert.Equal(first, pn.String())
}

func Test_Reformat(t *testing.T) {
	assert := assert.New(t)
	lang := calcLanguage()

	v, err := lang.ParseValue("1+2")
	if !assert.NoError(err) {
		return
	}
	pn, err := lang.Generate(nil, v)
	if !assert.NoError(err) {
		return
	}
	assert.Equal("1 + 2", Format(pn))

	var spacing []*SpacingNode
	Walk(pn, func(n ParseNode) bool {
		for _, c := range n.Children() {
			if sp, ok := c.(*SpacingNode); ok {
				spacing = append(spacing, sp)
			}
		}
		return true
	})
	if !assert.NotEmpty(spacing) {
		return
	}

	Reformat(pn)
	Walk(pn, func(n ParseNode) bool {
		for _, c := range n.Children() {
			if sp, ok := c.(*SpacingNode); ok {
				assert.Equal(0, sp.Len())
			}
		}
		return true
	})
	assert.Equal("1 + 2", Format(pn))
}

func Test_Format_LanguageIndent(t *testing.T) {
	assert := assert.New(t)
	lang := blockLanguage()
	lang.Indent = "\t"

	v, err := lang.ParseValue("{x=1;}")
	if !assert.NoError(err) {
		return
	}
	text, err := lang.Print(v)
	if !assert.NoError(err) {
		return
	}
	assert.Equal("{\n\tx = 1;\n}\n", text)
}

func Test_FormatIndent(t *testing.T) {
	assert := assert.New(t)
	lang := blockLanguage()

	v, err := lang.ParseValue("{x=1;}")
	if !assert.NoError(err) {
		return
	}
	pn, err := lang.Generate(nil, v)
	if !assert.NoError(err) {
		return
	}
	assert.Equal("{\n  x = 1;\n}\n", FormatIndent(pn, "  "))

	// text is kept from the first format
	assert.Equal("{\n  x = 1;\n}\n", Format(pn))
}

func Test_Format_ParsedTextUnchanged(t *testing.T) {
	assert := assert.New(t)
	lang := blockLanguage()

	input := "{x   =1;\n\n   {y=2;}   }"
	pn := mustParse(lang, input)
	Reformat(pn)
	assert.Equal(input, Format(pn))
}
