// Package minic is a small C-like scripting language with blocks, if and
// while statements, functions, and arithmetic and comparison expressions. Its
// grammar is registered under the extension "mc".
//
// Programs parse to a Program node whose body is a list of statements:
//
//	Var(name, value)            var x = 1;
//	Assign(target, value)       x = 2;
//	If(cond, then, else)        if (x < 3) { ... } else ...
//	While(cond, body)           while (x) x = x - 1;
//	Func(name, params, body)    func f(a, b) { ... }
//	Return(value)               return a + b;
//	ExprStmt(expr)              f(x);
//	Block(body)                 { ... }
//
// Expressions are BinaryExpr(lhs, op, rhs), Unary(op, operand),
// Call(fn, args), Name(id), Number(value), and String(value).
package minic

import (
	"fmt"

	"github.com/dekarrin/parselet"
)

// Extension is the file extension minic sources use.
const Extension = "mc"

var keywords = map[string]bool{
	"if":     true,
	"else":   true,
	"while":  true,
	"return": true,
	"var":    true,
	"func":   true,
}

var lang = build()

func init() {
	parselet.Register(lang)
}

// Language returns the minic grammar.
func Language() *parselet.Language {
	return lang
}

func identChars(opts parselet.Options) *parselet.SymbolChoice {
	return parselet.NewCharClass("", opts, "_").AddRange('a', 'z').AddRange('A', 'Z').AddRange('0', '9')
}

// keyword matches word only when no identifier character follows it.
func keyword(word string) parselet.Parselet {
	return parselet.NewSequence("<"+word+">", 0,
		parselet.NewSymbol("", 0, word),
		identChars(parselet.Negated),
	)
}

func sym(lit string) parselet.Parselet {
	return parselet.NewSymbol("", 0, lit)
}

func build() *parselet.Language {
	space := parselet.NewCharClass("", 0, " \t\r\n")
	comment := parselet.NewSequence("comment", 0,
		sym("//"),
		parselet.NewCharClass("", parselet.Optional|parselet.Repeat, "\n").Exclude(),
	)
	gap := parselet.NewOrderedChoice("", parselet.Optional|parselet.Repeat, space, comment)

	ws := parselet.NewSpacing("ws", parselet.Optional|parselet.Skip, gap)
	nl := parselet.NewNewline("nl", parselet.Optional|parselet.Skip, gap)

	ident := parselet.NewSequence("ident", 0,
		parselet.NewCharClass("", 0, "_").AddRange('a', 'z').AddRange('A', 'Z'),
		identChars(parselet.Optional|parselet.Repeat),
	)
	parselet.SetAccept(ident, func(v any) string {
		if s, ok := v.(string); ok && keywords[s] {
			return fmt.Sprintf("%q is a keyword", s)
		}
		return ""
	})
	digits := parselet.NewCharClass("digits", parselet.Repeat, "").AddRange('0', '9')

	expr := parselet.NewOrderedChoice("expr", parselet.Skip)
	sum := parselet.NewOrderedChoice("sum", parselet.Skip)
	term := parselet.NewOrderedChoice("term", parselet.Skip)
	unary := parselet.NewOrderedChoice("unary", parselet.Skip)
	primary := parselet.NewOrderedChoice("primary", parselet.Skip)

	number := parselet.NewSequence("Number(value)", 0, digits)
	str := parselet.NewSequence("String(,value,)", 0,
		sym(`"`),
		parselet.NewCharClass("", parselet.Optional|parselet.Repeat, "\"\n").Exclude(),
		sym(`"`),
	)
	name := parselet.NewSequence("Name(id)", 0, ident)
	paren := parselet.NewSequence("(,,.,,)", 0, sym("("), ws, expr, ws, sym(")"))

	moreArgs := parselet.NewSequence("(,,,[])", parselet.Optional|parselet.Repeat, ws, sym(","), ws, expr)
	args := parselet.NewSequence("([],[])", parselet.Optional, expr, moreArgs)
	call := parselet.NewSequence("Call(fn,,,,args,,)", 0, ident, ws, sym("("), ws, args, ws, sym(")"))

	cmp := parselet.NewSequence("BinaryExpr(lhs,,op,,rhs)", 0,
		expr, ws, parselet.NewSymbolChoice("cmpOp", 0, "==", "!=", "<=", ">=", "<", ">"), ws, sum)
	add := parselet.NewSequence("BinaryExpr(lhs,,op,,rhs)", 0,
		sum, ws, parselet.NewSymbolChoice("addOp", 0, "+", "-"), ws, term)
	mul := parselet.NewSequence("BinaryExpr(lhs,,op,,rhs)", 0,
		term, ws, parselet.NewSymbolChoice("mulOp", 0, "*", "/", "%"), ws, unary)
	neg := parselet.NewSequence("Unary(op,,operand)", 0, parselet.NewSymbolChoice("unaryOp", 0, "-", "!"), ws, unary)

	primary.Add(number, str, call, name, paren)
	unary.Add(neg, primary)
	term.Add(mul, unary)
	sum.Add(add, term)
	expr.Add(cmp, sum)

	stmt := parselet.NewIndexedChoice("stmt", parselet.Skip)
	stmts := parselet.NewSequence("([],)", parselet.Optional|parselet.Repeat, stmt, nl)

	block := parselet.NewSequence("Block(,,body,)", 0, sym("{"), nl, stmts, sym("}"))
	elsePart := parselet.NewSequence("(,,,.)", parselet.Optional, ws, keyword("else"), ws, stmt)
	ifStmt := parselet.NewSequence("If(,,,,cond,,,,then,else)", 0,
		keyword("if"), ws, sym("("), ws, expr, ws, sym(")"), ws, stmt, elsePart)
	whileStmt := parselet.NewSequence("While(,,,,cond,,,,body)", 0,
		keyword("while"), ws, sym("("), ws, expr, ws, sym(")"), ws, stmt)
	retValue := parselet.NewSequence("(,.)", parselet.Optional, ws, expr)
	retStmt := parselet.NewSequence("Return(,value,,)", 0, keyword("return"), retValue, ws, sym(";"))
	varStmt := parselet.NewSequence("Var(,,name,,,,value,,)", 0,
		keyword("var"), ws, ident, ws, sym("="), ws, expr, ws, sym(";"))

	moreParams := parselet.NewSequence("(,,,[])", parselet.Optional|parselet.Repeat, ws, sym(","), ws, ident)
	params := parselet.NewSequence("([],[])", parselet.Optional, ident, moreParams)
	funcStmt := parselet.NewSequence("Func(,,name,,,,params,,,,body)", 0,
		keyword("func"), ws, ident, ws, sym("("), ws, params, ws, sym(")"), ws, block)

	assign := parselet.NewSequence("Assign(target,,,,value,,)", 0, ident, ws, sym("="), ws, expr, ws, sym(";"))
	exprStmt := parselet.NewSequence("ExprStmt(expr,,)", 0, expr, ws, sym(";"))

	stmt.Put("{", block).
		Put("if", ifStmt).
		Put("while", whileStmt).
		Put("return", retStmt).
		Put("var", varStmt).
		Put("func", funcStmt).
		AddDefault(assign, exprStmt)

	program := parselet.NewSequence("Program(,body)", 0, nl, stmts)

	return parselet.NewLanguage("minic", Extension, program,
		parselet.NewNodeType("Program", "body"),
		parselet.NewBlockType("Block", "body"),
	)
}
