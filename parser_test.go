package parselet

import (
	"errors"
	"strings"
	"testing"

	"github.com/dekarrin/parselet/internal/source"
	"github.com/stretchr/testify/assert"
)

func Test_Parse_KeepsAllText(t *testing.T) {
	testCases := []struct {
		name  string
		lang  *Language
		input string
	}{
		{name: "single number", lang: calcLanguage(), input: "12"},
		{name: "sum", lang: calcLanguage(), input: "1 + 2"},
		{name: "no spaces", lang: calcLanguage(), input: "1+2*3"},
		{name: "odd spacing", lang: calcLanguage(), input: "  a\t*  (b+ 3 )  "},
		{name: "chain", lang: calcLanguage(), input: "1 - 2 - 3 - 4"},
		{name: "block", lang: blockLanguage(), input: "{\n  x = 1;\n    y=2;\n}"},
		{name: "plus", lang: plusLanguage(), input: "a+b"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			pn, err := tc.lang.Parse(tc.input)
			if !assert.NoError(err) {
				return
			}

			assert.Equal(tc.input, pn.String())
			assert.Equal(len([]rune(tc.input)), pn.Len())
		})
	}
}

func Test_Parse_SequenceScenario(t *testing.T) {
	assert := assert.New(t)
	lang := plusLanguage()

	pn, err := lang.Parse("a+b")
	if !assert.NoError(err) {
		return
	}
	parent, ok := pn.(*ParentNode)
	if !assert.True(ok, "root should be a *ParentNode") {
		return
	}
	assert.Len(parent.Children(), 3)
	assert.Equal("a+b", parent.String())

	_, err = lang.Parse("a-b")
	var perr *ParseError
	if !assert.True(errors.As(err, &perr)) {
		return
	}
	assert.Equal(1, perr.End)
	assert.Contains(perr.Message(), "'+'")
}

func Test_Parse_Values(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "number", input: "42", expect: `Number{value="42"}`},
		{name: "name", input: "abc", expect: `Name{id="abc"}`},
		{
			name:   "precedence",
			input:  "1 + 2 * 3",
			expect: `BinaryExpr{lhs=Number{value="1"}, op="+", rhs=BinaryExpr{lhs=Number{value="2"}, op="*", rhs=Number{value="3"}}}`,
		},
		{
			name:   "left associative",
			input:  "1-2-3",
			expect: `BinaryExpr{lhs=BinaryExpr{lhs=Number{value="1"}, op="-", rhs=Number{value="2"}}, op="-", rhs=Number{value="3"}}`,
		},
		{
			name:   "parens",
			input:  "(1+2)*x",
			expect: `BinaryExpr{lhs=BinaryExpr{lhs=Number{value="1"}, op="+", rhs=Number{value="2"}}, op="*", rhs=Name{id="x"}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			v, err := calcLanguage().ParseValue(tc.input)
			if !assert.NoError(err) {
				return
			}
			n, ok := v.(*Node)
			if !assert.True(ok) {
				return
			}
			assert.Equal(tc.expect, n.String())
		})
	}
}

func Test_Parse_LeftRecursionTerminates(t *testing.T) {
	assert := assert.New(t)

	input := strings.Repeat("1+", 200) + "1"
	var stats Stats
	pn, err := calcLanguage().ParseWith(NewStringInput(input), ParseOptions{Stats: &stats})
	if !assert.NoError(err) {
		return
	}
	assert.Equal(input, pn.String())
	assert.Greater(stats.Growths, 199)

	depth := 0
	for v := pn.Semantic(); v != nil; {
		n, ok := v.(*Node)
		if !ok || n.Type().Name != "BinaryExpr" {
			break
		}
		depth++
		v = n.Get("lhs")
	}
	assert.Equal(200, depth)
}

func Test_Parse_Errors(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expectEnd int
		expectEOF bool
	}{
		{name: "missing operand", input: "1 +", expectEnd: 3, expectEOF: true},
		{name: "bad char", input: "1 + $", expectEnd: 4},
		{name: "unclosed paren", input: "(1 + 2", expectEnd: 6, expectEOF: true},
		{name: "trailing junk", input: "1 2", expectEnd: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			var raised []*ParseError
			_, err := calcLanguage().ParseWith(NewStringInput(tc.input), ParseOptions{
				OnError: func(e *ParseError) { raised = append(raised, e) },
			})

			var perr *ParseError
			if !assert.True(errors.As(err, &perr)) {
				return
			}
			assert.Equal(tc.expectEnd, perr.End)
			assert.Equal(tc.expectEOF, perr.EOF)
			for _, e := range raised {
				assert.GreaterOrEqual(perr.End, e.End, "discarded error %q got further than the reported one", e.Message())
			}
		})
	}
}

func Test_Parse_EquallyGoodErrorsAreCombined(t *testing.T) {
	assert := assert.New(t)

	_, err := calcLanguage().Parse("1 + )")
	var perr *ParseError
	if !assert.True(errors.As(err, &perr)) {
		return
	}
	assert.Equal(4, perr.End)
	assert.NotEmpty(perr.Others)

	all := []string{perr.Message()}
	for _, o := range perr.Others {
		assert.Equal(perr.End, o.End)
		all = append(all, o.Message())
	}
	assert.Contains(strings.Join(all, "\n"), "'('")
}

func Test_Parse_Negation(t *testing.T) {
	lang := NewLanguage("notx", "", NewSequence("notx", 0,
		NewSymbol("", Negated, "x"),
		NewAnyChar("", Repeat),
	))

	testCases := []struct {
		name      string
		input     string
		expectErr bool
	}{
		{name: "other char", input: "abc"},
		{name: "negated char", input: "xyz", expectErr: true},
		{name: "negated char later", input: "ax"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			var raised []*ParseError
			pn, err := lang.ParseWith(NewStringInput(tc.input), ParseOptions{
				OnError: func(e *ParseError) { raised = append(raised, e) },
			})
			if tc.expectErr {
				var perr *ParseError
				if assert.True(errors.As(err, &perr)) {
					assert.Equal(0, perr.End)
					assert.Contains(perr.Message(), "Not expecting")
				}
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.input, pn.Semantic())
			assert.Empty(raised, "errors inside a negated match must not be recorded")
		})
	}
}

func Test_Parse_Lookahead(t *testing.T) {
	assert := assert.New(t)

	lang := NewLanguage("ahead", "", NewSequence("ahead", 0,
		NewSymbol("", Lookahead, "ab"),
		NewAnyChar("", Repeat),
	))

	pn, err := lang.Parse("abc")
	if !assert.NoError(err) {
		return
	}
	assert.Equal("abc", pn.Semantic())
	assert.Equal("abc", pn.String())

	_, err = lang.Parse("acb")
	assert.Error(err)
}

func Test_Parse_Accept(t *testing.T) {
	assert := assert.New(t)

	word := NewSymbolChoice("word", Repeat).AddRange('a', 'z')
	SetAccept(word, func(v any) string {
		if v == "if" {
			return "keyword used as a word"
		}
		return ""
	})
	lang := NewLanguage("words", "", NewSequence("Word(w)", 0, word))

	v, err := lang.ParseValue("hello")
	if assert.NoError(err) {
		assert.Equal("hello", v.(*Node).Get("w"))
	}

	_, err = lang.Parse("if")
	if assert.Error(err) {
		assert.Contains(err.Error(), "keyword used as a word")
	}
}

func Test_Parse_PartialValues(t *testing.T) {
	assert := assert.New(t)

	input := "1 +"
	_, err := calcLanguage().ParseWith(NewStringInput(input), ParseOptions{PartialValues: true})

	var perr *ParseError
	if !assert.True(errors.As(err, &perr)) {
		return
	}
	assert.True(perr.EOF)
	if !assert.NotNil(perr.PartialValue) {
		return
	}

	text := perr.PartialValue.String()
	if perr.Unparsed != nil {
		text += perr.Unparsed.String()
	}
	assert.Equal(input, text)
}

func Test_Parse_IndexedChoice(t *testing.T) {
	ident := NewSymbolChoice("ident", Repeat).AddRange('a', 'z')
	ws := NewCharClass("ws", Repeat, " ")
	stmt := NewIndexedChoice("stmt", Skip)
	stmt.Put("print", NewSequence("Print(,,arg)", 0, NewSymbol("", 0, "print"), ws, ident))
	stmt.Put("pr", NewSequence("Pr(,,arg)", 0, NewSymbol("", 0, "pr"), ws, ident))
	stmt.AddDefault(NewSequence("Expr(name)", 0, ident))
	lang := NewLanguage("idx", "", stmt)

	testCases := []struct {
		name       string
		input      string
		expectType string
	}{
		{name: "longest key", input: "print x", expectType: "Print"},
		{name: "shorter key", input: "pr x", expectType: "Pr"},
		{name: "key prefix falls to default", input: "printer", expectType: "Expr"},
		{name: "no key", input: "abc", expectType: "Expr"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			v, err := lang.ParseValue(tc.input)
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expectType, v.(*Node).Type().Name)
		})
	}
}

func Test_Parse_IndexedChoice_OnlyMatchingKeyTried(t *testing.T) {
	ident := NewSymbolChoice("ident", Repeat).AddRange('a', 'z')
	whileStmt := NewSequence("While(,,cond,)", 0, NewSymbol("", 0, "while"), NewSymbol("", 0, "("), ident, NewSymbol("", 0, ")"))
	ifStmt := NewSequence("If(,,cond,)", 0, NewSymbol("", 0, "if"), NewSymbol("", 0, "("), ident, NewSymbol("", 0, ")"))
	callStmt := NewSequence("Call(fn,,arg,)", 0, ident, NewSymbol("", 0, "("), ident, NewSymbol("", 0, ")"))
	stmt := NewIndexedChoice("stmt", Skip).
		Put("while", whileStmt).
		Put("if", ifStmt).
		AddDefault(callStmt)
	lang := NewLanguage("keyed", "", stmt)

	testCases := []struct {
		name        string
		input       string
		expectTried []Parselet
		expectNot   []Parselet
	}{
		{
			name:        "while key",
			input:       "while(x)",
			expectTried: []Parselet{whileStmt},
			expectNot:   []Parselet{ifStmt, callStmt},
		},
		{
			name:        "if key",
			input:       "if(x)",
			expectTried: []Parselet{ifStmt},
			expectNot:   []Parselet{whileStmt, callStmt},
		},
		{
			name:        "no key goes to default",
			input:       "f(x)",
			expectTried: []Parselet{callStmt},
			expectNot:   []Parselet{whileStmt, ifStmt},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			tried := map[Parselet]bool{}
			opts := ParseOptions{Trace: func(pl Parselet, pos int) {
				tried[pl] = true
			}}

			_, err := lang.ParseWith(NewStringInput(tc.input), opts)
			if !assert.NoError(err) {
				return
			}
			for _, pl := range tc.expectTried {
				assert.True(tried[pl], "%s should have been tried", pl)
			}
			for _, pl := range tc.expectNot {
				assert.False(tried[pl], "%s should not have been tried", pl)
			}
		})
	}
}

func Test_Parse_RepeatNeedsOne(t *testing.T) {
	item := NewSequence("Item(name,)", Repeat|Report,
		NewSymbolChoice("letter", 0).AddRange('a', 'z'),
		NewSymbol("", 0, ";"),
	)
	lang := NewLanguage("items", "", NewSequence("List(items)", 0, item))

	testCases := []struct {
		name        string
		input       string
		expectErr   bool
		expectNames []string
	}{
		{name: "zero repetitions", input: "", expectErr: true},
		{name: "zero repetitions before other text", input: "1;", expectErr: true},
		{name: "one repetition", input: "a;", expectNames: []string{"a"}},
		{name: "several repetitions", input: "a;b;c;", expectNames: []string{"a", "b", "c"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			v, err := lang.ParseValue(tc.input)
			if tc.expectErr {
				var perr *ParseError
				if !assert.True(errors.As(err, &perr)) {
					return
				}
				assert.Equal(CodeExpectedRepeat, perr.Code)
				assert.Equal(0, perr.Start)
				return
			}
			if !assert.NoError(err) {
				return
			}

			items, ok := v.(*Node).Get("items").(*NodeList)
			if !assert.True(ok, "items should be a list") {
				return
			}
			var names []string
			for _, it := range items.Items() {
				names = append(names, it.(*Node).Get("name").(string))
			}
			assert.Equal(tc.expectNames, names)
		})
	}
}

func Test_Parse_ReaderInput(t *testing.T) {
	assert := assert.New(t)

	input := strings.Repeat("a*", 700) + "b"
	pn, err := calcLanguage().ParseReader(strings.NewReader(input), ParseOptions{})
	if !assert.NoError(err) {
		return
	}
	assert.Equal(input, pn.String())
}

func Test_ParseError_FullMessage(t *testing.T) {
	assert := assert.New(t)

	_, err := plusLanguage().Parse("a-b")
	var perr *ParseError
	if !assert.True(errors.As(err, &perr)) {
		return
	}

	msg := perr.FullMessage(source.New("test.plus", "a-b"))
	lines := strings.Split(msg, "\n")
	if !assert.Len(lines, 3) {
		return
	}
	assert.Equal("a-b", lines[0])
	assert.Equal(" ^", lines[1])
	assert.True(strings.HasPrefix(lines[2], "test.plus:1:2: syntax error: "), lines[2])
}
