package parselet

// calcLanguage builds a small expression grammar with left-recursive binary
// operators at two precedence levels.
func calcLanguage() *Language {
	ws := NewSpacing("ws", Optional|Skip, NewCharClass("", Optional|Repeat, " \t\n"))

	digits := NewSymbolChoice("digits", Repeat).AddRange('0', '9')
	letters := NewSequence("ident", 0,
		NewSymbolChoice("", 0).AddRange('a', 'z'),
		NewSymbolChoice("", Optional|Repeat).AddRange('a', 'z').AddRange('0', '9'),
	)

	expr := NewOrderedChoice("expr", Skip)
	term := NewOrderedChoice("term", Skip)
	primary := NewOrderedChoice("primary", Skip)

	number := NewSequence("Number(value)", 0, digits)
	name := NewSequence("Name(id)", 0, letters)
	paren := NewSequence("(,,.,,)", 0, NewSymbol("", 0, "("), ws, expr, ws, NewSymbol("", 0, ")"))

	add := NewSequence("BinaryExpr(lhs,,op,,rhs)", 0, expr, ws, NewSymbolChoice("addOp", 0, "+", "-"), ws, term)
	mul := NewSequence("BinaryExpr(lhs,,op,,rhs)", 0, term, ws, NewSymbolChoice("mulOp", 0, "*", "/"), ws, primary)

	primary.Add(number, name, paren)
	term.Add(mul, primary)
	expr.Add(add, term)

	start := NewSequence("(,.,)", 0, ws, expr, ws)
	return NewLanguage("calc", "calc", start)
}

// plusLanguage is the grammar a '+' b.
func plusLanguage() *Language {
	return NewLanguage("plus", "plus", NewSequence("a+b", 0,
		NewSymbol("", 0, "a"),
		NewSymbol("", 0, "+"),
		NewSymbol("", 0, "b"),
	))
}

// blockLanguage builds a brace-block grammar of assignments to test
// newlines and indentation.
func blockLanguage() *Language {
	space := NewCharClass("", Optional|Repeat, " \t\n")
	ws := NewSpacing("ws", Optional|Skip, space)
	nl := NewNewline("nl", Optional|Skip, space)

	ident := NewSequence("ident", 0,
		NewSymbolChoice("", 0).AddRange('a', 'z'),
		NewSymbolChoice("", Optional|Repeat).AddRange('a', 'z'),
	)
	digits := NewSymbolChoice("digits", Repeat).AddRange('0', '9')

	stmt := NewOrderedChoice("stmt", Skip)
	assign := NewSequence("Assign(target,,,,value,)", 0, ident, ws, NewSymbol("", 0, "="), ws, digits, NewSymbol("", 0, ";"))
	stmts := NewSequence("([],)", Optional|Repeat, stmt, nl)
	block := NewSequence("Block(,,body,)", 0, NewSymbol("", 0, "{"), nl, stmts, NewSymbol("", 0, "}"))
	stmt.Add(block, assign)

	start := NewSequence("(,.,)", 0, nl, stmt, nl)
	return NewLanguage("block", "blk", start, NewBlockType("Block", "body"))
}

func mustParse(l *Language, text string) ParseNode {
	pn, err := l.Parse(text)
	if err != nil {
		panic(err)
	}
	return pn
}
