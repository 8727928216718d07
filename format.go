package parselet

import (
	"strings"
	"unicode"

	"github.com/dekarrin/parselet/internal/util"
)

// DefaultIndent is the indent string used for languages that do not set one.
const DefaultIndent = "    "

// FormatContext carries the state of turning a parse tree into text. Spacing
// and newline nodes use it to look at the text on either side of them.
type FormatContext struct {
	sb       strings.Builder
	last     rune
	word     []rune
	indent   string
	level    int
	keywords util.KeySet[string]
	pending  []pendingChildren
}

type pendingChildren struct {
	value    any
	children []Element
	idx      int
}

func newFormatContext(lang *Language) *FormatContext {
	ctx := &FormatContext{indent: DefaultIndent}
	if lang != nil {
		if lang.Indent != "" {
			ctx.indent = lang.Indent
		}
		ctx.keywords = lang.keywords
	}
	return ctx
}

// Format returns the text of the tree rooted at pn. Spacing and newline nodes
// that have not been formatted yet work out their text and keep it.
func Format(pn ParseNode) string {
	return formatTree(pn, "")
}

// FormatIndent is Format with indent used for one level of indentation in
// place of the language's own. It only affects newline nodes that have not
// been formatted before.
func FormatIndent(pn ParseNode, indent string) string {
	return formatTree(pn, indent)
}

func formatTree(pn ParseNode, indent string) string {
	var lang *Language
	if pl := pn.Parselet(); pl != nil {
		lang = pl.Language()
	}
	ctx := newFormatContext(lang)
	if indent != "" {
		ctx.indent = indent
	}
	pn.formatTo(ctx)
	return ctx.String()
}

func (ctx *FormatContext) String() string {
	return ctx.sb.String()
}

func (ctx *FormatContext) write(s string) {
	for _, ch := range s {
		ctx.last = ch
		if isIdentChar(ch) {
			ctx.word = append(ctx.word, ch)
		} else {
			ctx.word = ctx.word[:0]
		}
	}
	ctx.sb.WriteString(s)
}

func (ctx *FormatContext) enter(v any, children []Element) {
	ctx.pending = append(ctx.pending, pendingChildren{value: v, children: children, idx: -1})
}

func (ctx *FormatContext) advance(i int) {
	ctx.pending[len(ctx.pending)-1].idx = i
}

func (ctx *FormatContext) leave() {
	ctx.pending = ctx.pending[:len(ctx.pending)-1]
}

// PrevChar returns the last character written, or 0 at the start.
func (ctx *FormatContext) PrevChar() rune {
	return ctx.last
}

// PrevWord returns the identifier the output currently ends with, if any.
func (ctx *FormatContext) PrevWord() string {
	return string(ctx.word)
}

// IndentLevel returns the current indentation level.
func (ctx *FormatContext) IndentLevel() int {
	return ctx.level
}

// NextChar returns the first character of the text still to be written,
// skipping spacing and newline nodes, or 0 if nothing follows.
func (ctx *FormatContext) NextChar() rune {
	var next rune
	ctx.peek(func(ch rune) bool {
		if ch == wordBreak {
			return true
		}
		next = ch
		return false
	})
	return next
}

// NextWord returns the identifier at the start of the text still to be
// written. A spacing or newline node ends the word.
func (ctx *FormatContext) NextWord() string {
	var word []rune
	ctx.peek(func(ch rune) bool {
		if ch == wordBreak {
			return len(word) == 0
		}
		if !isIdentChar(ch) {
			return false
		}
		word = append(word, ch)
		return true
	})
	return string(word)
}

// wordBreak is given to peek callbacks in place of a spacing or newline node.
const wordBreak rune = -1

// peek feeds the characters after the current position to fn until it returns
// false.
func (ctx *FormatContext) peek(fn func(rune) bool) {
	for level := len(ctx.pending) - 1; level >= 0; level-- {
		pc := ctx.pending[level]
		for j := pc.idx + 1; j < len(pc.children); j++ {
			if !peekElement(pc.children[j], fn) {
				return
			}
		}
	}
}

// peekElement returns false once fn has asked to stop.
func peekElement(e Element, fn func(rune) bool) bool {
	switch te := e.(type) {
	case nil:
		return true
	case *SpacingNode, *NewlineNode:
		return fn(wordBreak)
	case StringToken, Literal, *ErrorNode:
		for _, ch := range te.String() {
			if !fn(ch) {
				return false
			}
		}
		return true
	case ParseNode:
		for _, c := range te.Children() {
			if !peekElement(c, fn) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// NextValue returns the first node or list carried by the parse nodes still
// to be written.
func (ctx *FormatContext) NextValue() any {
	for level := len(ctx.pending) - 1; level >= 0; level-- {
		pc := ctx.pending[level]
		for j := pc.idx + 1; j < len(pc.children); j++ {
			if v := firstValue(pc.children[j]); v != nil {
				return v
			}
		}
	}
	return nil
}

func firstValue(e Element) any {
	pn, ok := e.(ParseNode)
	if !ok || pn == nil {
		return nil
	}
	switch pn.(type) {
	case *SpacingNode, *NewlineNode, *ErrorNode:
		return nil
	}
	switch v := pn.Semantic().(type) {
	case *Node:
		return v
	case *NodeList:
		if v.Len() > 0 {
			return v
		}
	}
	for _, c := range pn.Children() {
		if v := firstValue(c); v != nil {
			return v
		}
	}
	return nil
}

func isIdentChar(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func isSpaceChar(ch rune) bool {
	return unicode.IsSpace(ch)
}

// SpacingNode is generated where a grammar allows optional whitespace. Its
// text is chosen from the characters around it the first time it is
// formatted.
type SpacingNode struct {
	parselet Parselet
	text     *string
}

func (n *SpacingNode) Parselet() Parselet  { return n.parselet }
func (n *SpacingNode) StartIndex() int     { return -1 }
func (n *SpacingNode) Children() []Element { return nil }
func (n *SpacingNode) Semantic() any       { return nil }
func (n *SpacingNode) SetSemantic(v any)   { panic(ErrUnsupported) }

func (n *SpacingNode) Len() int {
	if n.text == nil {
		return 0
	}
	return len([]rune(*n.text))
}

func (n *SpacingNode) String() string {
	if n.text == nil {
		return ""
	}
	return *n.text
}

func (n *SpacingNode) formatTo(ctx *FormatContext) {
	if n.text == nil {
		txt := ctx.spacingText()
		n.text = &txt
	}
	ctx.write(*n.text)
}

func (n *SpacingNode) copyElement() Element { return n.DeepCopy() }

func (n *SpacingNode) DeepCopy() ParseNode {
	cp := *n
	return &cp
}

func (n *SpacingNode) replaceChild(old, repl Element) bool { return false }

func (ctx *FormatContext) spacingText() string {
	prev := ctx.PrevChar()
	next := ctx.NextChar()

	switch {
	case prev == 0 || next == 0:
		return ""
	case isSpaceChar(prev) || isSpaceChar(next):
		return ""
	case prev == '}' && isIdentChar(next):
		if ctx.keywords.Has(ctx.NextWord()) {
			return " "
		}
		return "\n" + strings.Repeat(ctx.indent, ctx.level)
	case strings.ContainsRune("([.!~", prev):
		return ""
	case ctx.afterPrefixOperator():
		return ""
	case strings.ContainsRune(")];,.", next):
		return ""
	case next == '(':
		if isIdentChar(prev) && !ctx.keywords.Has(ctx.PrevWord()) {
			return ""
		}
		return " "
	case next == '[' && (isIdentChar(prev) || prev == ')' || prev == ']'):
		return ""
	default:
		return " "
	}
}

// afterPrefixOperator returns whether the node being written opened with an
// operator such as "-" that was just written, which binds to what follows it.
func (ctx *FormatContext) afterPrefixOperator() bool {
	if len(ctx.pending) == 0 {
		return false
	}
	pc := ctx.pending[len(ctx.pending)-1]
	if pc.idx != 1 {
		return false
	}

	var op []rune
	peekElement(pc.children[0], func(ch rune) bool {
		op = append(op, ch)
		return ch != wordBreak
	})
	return len(op) > 0 && strings.Trim(string(op), prefixOperatorChars) == ""
}

const prefixOperatorChars = "-+!~"

// NewlineNode is generated where a grammar expects a line break. The indent
// that follows the break comes from the braces around it, or from the nesting
// depth of the value that comes next. Nothing is written at the very start of
// the output.
type NewlineNode struct {
	parselet Parselet
	text     *string
	level    int
}

func (n *NewlineNode) Parselet() Parselet  { return n.parselet }
func (n *NewlineNode) StartIndex() int     { return -1 }
func (n *NewlineNode) Children() []Element { return nil }
func (n *NewlineNode) Semantic() any       { return nil }
func (n *NewlineNode) SetSemantic(v any)   { panic(ErrUnsupported) }

func (n *NewlineNode) Len() int {
	if n.text == nil {
		return 0
	}
	return len([]rune(*n.text))
}

func (n *NewlineNode) String() string {
	if n.text == nil {
		return ""
	}
	return *n.text
}

func (n *NewlineNode) formatTo(ctx *FormatContext) {
	if n.text == nil {
		prev, next := ctx.PrevChar(), ctx.NextChar()
		level := ctx.level
		if prev == '{' {
			level++
		}
		if next == '}' {
			level--
		} else if d, ok := valueDepth(ctx.NextValue()); ok {
			level = d
		}
		if level < 0 {
			level = 0
		}

		var txt string
		switch {
		case prev == 0:
		case next == 0:
			txt = "\n"
		default:
			txt = "\n" + strings.Repeat(ctx.indent, level)
		}
		n.text = &txt
		n.level = level
	}
	ctx.level = n.level
	ctx.write(*n.text)
}

func (n *NewlineNode) copyElement() Element { return n.DeepCopy() }

func (n *NewlineNode) DeepCopy() ParseNode {
	cp := *n
	return &cp
}

func (n *NewlineNode) replaceChild(old, repl Element) bool { return false }

// Reformat replaces every spacing and newline node under pn with a fresh one,
// so that the next format works out their text again.
func Reformat(pn ParseNode) {
	Walk(pn, func(n ParseNode) bool {
		switch tn := n.(type) {
		case *ParentNode:
			for i, c := range tn.children {
				tn.children[i] = freshFormatting(c)
			}
		case *LeafNode:
			tn.child = freshFormatting(tn.child)
		}
		return true
	})
}

func freshFormatting(e Element) Element {
	switch te := e.(type) {
	case *SpacingNode:
		return &SpacingNode{parselet: te.parselet}
	case *NewlineNode:
		return &NewlineNode{parselet: te.parselet}
	default:
		return e
	}
}
