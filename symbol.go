package parselet

import (
	"fmt"
	"sort"
	"strings"
)

type symbolKind int

const (
	symLiteral symbolKind = iota
	symAnyChar
	symEOF
)

// Symbol matches a fixed piece of text, any single character, or the end of
// the input.
type Symbol struct {
	parseletCore
	kind symbolKind
	lit  []rune
	text string
}

// NewSymbol creates a Symbol that matches the literal text lit. lit must not
// be empty.
func NewSymbol(name string, opts Options, lit string) *Symbol {
	if lit == "" {
		panic("NewSymbol: empty literal")
	}
	return &Symbol{
		parseletCore: parseletCore{name: name, opts: opts},
		kind:         symLiteral,
		lit:          []rune(lit),
		text:         lit,
	}
}

// NewAnyChar creates a Symbol that matches any one character.
func NewAnyChar(name string, opts Options) *Symbol {
	return &Symbol{parseletCore: parseletCore{name: name, opts: opts}, kind: symAnyChar}
}

// NewEOF creates a Symbol that matches only at the end of the input.
func NewEOF(name string) *Symbol {
	return &Symbol{parseletCore: parseletCore{name: name}, kind: symEOF}
}

// Text returns the literal the symbol matches. It is empty for any-char and
// end-of-input symbols.
func (s *Symbol) Text() string {
	return s.text
}

func (s *Symbol) String() string {
	if s.name != "" {
		return decorate(s.name, s.opts)
	}
	switch s.kind {
	case symAnyChar:
		return decorate("<any char>", s.opts)
	case symEOF:
		return "<end of input>"
	default:
		return decorate(fmt.Sprintf("'%s'", s.text), s.opts)
	}
}

func (s *Symbol) children() []Parselet { return nil }

func (s *Symbol) parse(p *Parser) (Element, *ParseError) {
	start := p.pos
	idx := start

	switch s.kind {
	case symEOF:
		if p.in.AtEOF(start) {
			return nil, nil
		}
		return nil, p.fail(s, start, start, CodeExpectedEnd)
	case symAnyChar:
		for !p.in.AtEOF(idx) {
			idx++
			if !s.repeats() {
				break
			}
		}
	default:
		for p.in.HasPrefix(idx, s.lit) {
			idx += len(s.lit)
			if !s.repeats() {
				break
			}
		}
	}

	if idx == start {
		if s.optional() {
			return nil, nil
		}
		return nil, p.fail(s, start, start, CodeExpected, s.String())
	}

	p.pos = idx
	return newToken(p.in, start, idx), nil
}

func (s *Symbol) generate(ctx *GenerateContext, v any) (Element, *GenerateError) {
	if v == nil {
		switch {
		case s.optional() || s.kind == symEOF:
			return nil, nil
		case s.kind == symLiteral:
			return Literal(s.text), nil
		default:
			return nil, &GenerateError{Parselet: s, Message: "no value for any-char symbol"}
		}
	}

	str, ok := asText(v)
	if !ok {
		return nil, &GenerateError{Parselet: s, Value: v, Message: fmt.Sprintf("cannot generate %T as text", v)}
	}

	switch s.kind {
	case symEOF:
		if str == "" {
			return nil, nil
		}
	case symAnyChar:
		n := len([]rune(str))
		if n == 1 || (n > 1 && s.repeats()) {
			return Literal(str), nil
		}
	default:
		if str == s.text {
			return Literal(str), nil
		}
		if s.repeats() && str != "" && strings.Count(str, s.text)*len(s.text) == len(str) {
			return Literal(str), nil
		}
	}
	if str == "" && s.optional() {
		return nil, nil
	}

	return nil, &GenerateError{Parselet: s, Value: v, Message: fmt.Sprintf("%q does not match %s", str, s)}
}

type runeRange struct {
	lo, hi rune
}

// SymbolChoice matches one of a set of literals or characters. A SymbolChoice
// made with Exclude matches any single character that is not in its set.
type SymbolChoice struct {
	parseletCore
	lits    [][]rune
	byFirst map[rune][][]rune
	ranges  []runeRange
	exclude bool
}

// NewSymbolChoice creates a SymbolChoice matching any of lits. The longest
// literal that matches wins.
func NewSymbolChoice(name string, opts Options, lits ...string) *SymbolChoice {
	sc := &SymbolChoice{
		parseletCore: parseletCore{name: name, opts: opts},
		byFirst:      map[rune][][]rune{},
	}
	for _, l := range lits {
		sc.addLiteral(l)
	}
	return sc
}

// NewCharClass creates a SymbolChoice matching any one of the characters in
// chars.
func NewCharClass(name string, opts Options, chars string) *SymbolChoice {
	sc := NewSymbolChoice(name, opts)
	return sc.AddChars(chars)
}

func (sc *SymbolChoice) addLiteral(l string) {
	if l == "" {
		panic("SymbolChoice: empty literal")
	}
	r := []rune(l)
	sc.lits = append(sc.lits, r)
	sc.byFirst[r[0]] = append(sc.byFirst[r[0]], r)
	sort.SliceStable(sc.byFirst[r[0]], func(i, j int) bool {
		return len(sc.byFirst[r[0]][i]) > len(sc.byFirst[r[0]][j])
	})
}

// AddChars adds each character of chars to the set.
func (sc *SymbolChoice) AddChars(chars string) *SymbolChoice {
	for _, ch := range chars {
		sc.addLiteral(string(ch))
	}
	return sc
}

// AddRange adds the inclusive character range lo..hi to the set.
func (sc *SymbolChoice) AddRange(lo, hi rune) *SymbolChoice {
	sc.ranges = append(sc.ranges, runeRange{lo: lo, hi: hi})
	return sc
}

// Exclude makes sc match any one character that is not in its set.
func (sc *SymbolChoice) Exclude() *SymbolChoice {
	sc.exclude = true
	return sc
}

// Literals returns the literal strings in the set.
func (sc *SymbolChoice) Literals() []string {
	out := make([]string, len(sc.lits))
	for i := range sc.lits {
		out[i] = string(sc.lits[i])
	}
	return out
}

func (sc *SymbolChoice) String() string {
	if sc.name != "" {
		return decorate(sc.name, sc.opts)
	}
	var parts []string
	for _, l := range sc.lits {
		parts = append(parts, fmt.Sprintf("'%s'", string(l)))
	}
	for _, r := range sc.ranges {
		parts = append(parts, fmt.Sprintf("'%c'-'%c'", r.lo, r.hi))
	}
	desc := "[" + strings.Join(parts, " ") + "]"
	if sc.exclude {
		desc = "[^" + desc[1:]
	}
	return decorate(desc, sc.opts)
}

func (sc *SymbolChoice) children() []Parselet { return nil }

func (sc *SymbolChoice) inRanges(ch rune) bool {
	for _, r := range sc.ranges {
		if ch >= r.lo && ch <= r.hi {
			return true
		}
	}
	return false
}

// matchAt returns the length of the longest match at i, or 0.
func (sc *SymbolChoice) matchAt(in *Input, i int) int {
	ch, ok := in.CharAt(i)
	if !ok {
		return 0
	}

	if sc.exclude {
		if sc.inRanges(ch) {
			return 0
		}
		for _, l := range sc.byFirst[ch] {
			if len(l) == 1 {
				return 0
			}
		}
		return 1
	}

	best := 0
	if sc.inRanges(ch) {
		best = 1
	}
	for _, l := range sc.byFirst[ch] {
		if len(l) <= best {
			break
		}
		if in.HasPrefix(i, l) {
			best = len(l)
			break
		}
	}
	return best
}

func (sc *SymbolChoice) parse(p *Parser) (Element, *ParseError) {
	start := p.pos
	idx := start
	for {
		n := sc.matchAt(p.in, idx)
		if n == 0 {
			break
		}
		idx += n
		if !sc.repeats() {
			break
		}
	}

	if idx == start {
		if sc.optional() {
			return nil, nil
		}
		return nil, p.fail(sc, start, start, CodeExpected, sc.String())
	}

	p.pos = idx
	return newToken(p.in, start, idx), nil
}

func (sc *SymbolChoice) generate(ctx *GenerateContext, v any) (Element, *GenerateError) {
	if v == nil {
		if sc.optional() {
			return nil, nil
		}
		if len(sc.lits) == 1 && len(sc.ranges) == 0 && !sc.exclude {
			return Literal(string(sc.lits[0])), nil
		}
		return nil, &GenerateError{Parselet: sc, Message: "no value for symbol choice"}
	}

	str, ok := asText(v)
	if !ok {
		return nil, &GenerateError{Parselet: sc, Value: v, Message: fmt.Sprintf("cannot generate %T as text", v)}
	}
	if str == "" && sc.optional() {
		return nil, nil
	}
	return ctx.generateFromText(sc, str)
}
