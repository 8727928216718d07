package parselet

import (
	"strings"
	"unicode/utf8"
)

// Element is anything that can be a child in a parse tree: a parse node, a
// StringToken of parsed text, or a Literal of generated text. A nil Element in
// a child list stands for an optional part that matched nothing.
type Element interface {
	// String returns the element's text.
	String() string

	// Len returns the number of characters the element covers.
	Len() int

	formatTo(ctx *FormatContext)
	copyElement() Element
}

// ParseNode is a node of a parse tree. Every parse node knows the parselet
// that made it and may carry a semantic value.
type ParseNode interface {
	Element

	// Parselet returns the parselet that produced the node.
	Parselet() Parselet

	// Semantic returns the node's semantic value, or nil.
	Semantic() any

	// SetSemantic replaces the node's semantic value.
	SetSemantic(v any)

	// StartIndex returns the input index the node's text began at, or -1 for
	// generated nodes.
	StartIndex() int

	// Children returns the node's child elements.
	Children() []Element

	// DeepCopy returns a copy of the node and all nodes under it. Semantic
	// values are shared with the original.
	DeepCopy() ParseNode

	replaceChild(old, repl Element) bool
}

// StringToken is a view of a range of parsed input text.
type StringToken struct {
	in     *Input
	start  int
	length int
}

func newToken(in *Input, start, end int) StringToken {
	return StringToken{in: in, start: start, length: end - start}
}

// Start returns the input index the token begins at.
func (t StringToken) Start() int { return t.start }

// Len returns the number of characters in the token.
func (t StringToken) Len() int { return t.length }

func (t StringToken) String() string {
	return t.in.Substring(t.start, t.start+t.length)
}

func (t StringToken) formatTo(ctx *FormatContext) { ctx.write(t.String()) }
func (t StringToken) copyElement() Element        { return t }

// Literal is text created by generation rather than read from input.
type Literal string

// Len returns the number of characters in the literal.
func (l Literal) Len() int { return utf8.RuneCountInString(string(l)) }

func (l Literal) String() string { return string(l) }

func (l Literal) formatTo(ctx *FormatContext) { ctx.write(string(l)) }
func (l Literal) copyElement() Element        { return l }

// LeafNode is a parse node with a single child.
type LeafNode struct {
	parselet Parselet
	start    int
	child    Element

	value    any
	hasValue bool
}

// NewLeafNode creates a leaf node for pl around child.
func NewLeafNode(pl Parselet, child Element) *LeafNode {
	return &LeafNode{parselet: pl, start: -1, child: child}
}

func (n *LeafNode) Parselet() Parselet  { return n.parselet }
func (n *LeafNode) StartIndex() int     { return n.start }
func (n *LeafNode) Children() []Element { return []Element{n.child} }

// Child returns the wrapped element.
func (n *LeafNode) Child() Element { return n.child }

func (n *LeafNode) Len() int {
	if n.child == nil {
		return 0
	}
	return n.child.Len()
}

// Semantic returns the value set on the node, or the value of its child if
// none was set.
func (n *LeafNode) Semantic() any {
	if n.hasValue {
		return n.value
	}
	return semanticOf(n.child)
}

func (n *LeafNode) SetSemantic(v any) {
	n.value = v
	n.hasValue = true
	setParseNode(v, n)
}

func (n *LeafNode) String() string { return formatTree(n, "") }

func (n *LeafNode) formatTo(ctx *FormatContext) {
	ctx.enter(n.Semantic(), []Element{n.child})
	ctx.advance(0)
	if n.child != nil {
		n.child.formatTo(ctx)
	}
	ctx.leave()
}

func (n *LeafNode) copyElement() Element { return n.DeepCopy() }

func (n *LeafNode) DeepCopy() ParseNode {
	cp := *n
	if n.child != nil {
		cp.child = n.child.copyElement()
	}
	return &cp
}

func (n *LeafNode) replaceChild(old, repl Element) bool {
	if n.child == old {
		n.child = repl
		return true
	}
	return false
}

// ParentNode is a parse node made by a sequence. Its children line up with the
// sequence's child parselets, repeated once per iteration for repeating
// sequences.
type ParentNode struct {
	parselet Parselet
	start    int
	children []Element
	value    any
}

// NewParentNode creates a parent node for pl holding children.
func NewParentNode(pl Parselet, children []Element) *ParentNode {
	return &ParentNode{parselet: pl, start: -1, children: children}
}

func (n *ParentNode) Parselet() Parselet  { return n.parselet }
func (n *ParentNode) StartIndex() int     { return n.start }
func (n *ParentNode) Children() []Element { return n.children }
func (n *ParentNode) Semantic() any       { return n.value }

func (n *ParentNode) SetSemantic(v any) {
	n.value = v
	setParseNode(v, n)
}

func (n *ParentNode) Len() int {
	total := 0
	for _, c := range n.children {
		if c != nil {
			total += c.Len()
		}
	}
	return total
}

func (n *ParentNode) String() string { return formatTree(n, "") }

func (n *ParentNode) formatTo(ctx *FormatContext) {
	ctx.enter(n.value, n.children)
	for i, c := range n.children {
		ctx.advance(i)
		if c != nil {
			c.formatTo(ctx)
		}
	}
	ctx.leave()
}

func (n *ParentNode) copyElement() Element { return n.DeepCopy() }

func (n *ParentNode) DeepCopy() ParseNode {
	cp := &ParentNode{parselet: n.parselet, start: n.start, value: n.value}
	cp.children = make([]Element, len(n.children))
	for i, c := range n.children {
		if c != nil {
			cp.children[i] = c.copyElement()
		}
	}
	return cp
}

func (n *ParentNode) replaceChild(old, repl Element) bool {
	for i, c := range n.children {
		if c == old {
			n.children[i] = repl
			return true
		}
	}
	return false
}

// ErrorNode covers input that could not be parsed.
type ErrorNode struct {
	Err   *ParseError
	token StringToken
}

func (n *ErrorNode) Parselet() Parselet {
	if n.Err == nil {
		return nil
	}
	return n.Err.Parselet
}

func (n *ErrorNode) StartIndex() int     { return n.token.start }
func (n *ErrorNode) Children() []Element { return []Element{n.token} }
func (n *ErrorNode) Semantic() any       { return nil }
func (n *ErrorNode) SetSemantic(v any)   { panic(ErrUnsupported) }
func (n *ErrorNode) Len() int            { return n.token.length }
func (n *ErrorNode) String() string      { return n.token.String() }

func (n *ErrorNode) formatTo(ctx *FormatContext) { ctx.write(n.token.String()) }
func (n *ErrorNode) copyElement() Element        { return n.DeepCopy() }

func (n *ErrorNode) DeepCopy() ParseNode {
	cp := *n
	return &cp
}

func (n *ErrorNode) replaceChild(old, repl Element) bool { return false }

// semanticOf returns the semantic value of an element. Text elements give
// their text.
func semanticOf(e Element) any {
	switch te := e.(type) {
	case nil:
		return nil
	case ParseNode:
		return te.Semantic()
	case StringToken:
		return te.String()
	case Literal:
		return string(te)
	default:
		return nil
	}
}

// textOf gives the raw text of an element without running the formatter.
func textOf(e Element) string {
	var sb strings.Builder
	writeText(&sb, e)
	return sb.String()
}

func writeText(sb *strings.Builder, e Element) {
	switch te := e.(type) {
	case nil:
	case StringToken:
		sb.WriteString(te.String())
	case Literal:
		sb.WriteString(string(te))
	case *ErrorNode:
		sb.WriteString(te.token.String())
	case ParseNode:
		for _, c := range te.Children() {
			writeText(sb, c)
		}
	default:
		sb.WriteString(e.String())
	}
}

// Walk calls fn on pn and every parse node under it in pre-order. Returning
// false from fn skips the children of that node.
func Walk(pn ParseNode, fn func(ParseNode) bool) {
	if pn == nil || !fn(pn) {
		return
	}
	for _, c := range pn.Children() {
		if cpn, ok := c.(ParseNode); ok && cpn != nil {
			Walk(cpn, fn)
		}
	}
}

// linkSemantics points every semantic value in the tree at the outermost parse
// node that carries it.
func linkSemantics(pn ParseNode) {
	if pn == nil {
		return
	}
	for _, c := range pn.Children() {
		if cpn, ok := c.(ParseNode); ok && cpn != nil {
			linkSemantics(cpn)
		}
	}
	if _, isErr := pn.(*ErrorNode); isErr {
		return
	}
	setParseNode(pn.Semantic(), pn)
}

// UpdateSemanticValue gives the parse tree under pn its own semantic values.
// Each value found in m is replaced by its mapped value; all others are
// replaced by deep copies, which are added to m. It is meant to be used on a
// tree made with DeepCopy.
func UpdateSemanticValue(pn ParseNode, m map[any]any) {
	if m == nil {
		m = map[any]any{}
	}
	Walk(pn, func(n ParseNode) bool {
		var v any
		switch tn := n.(type) {
		case *LeafNode:
			if !tn.hasValue {
				return true
			}
			v = tn.value
		case *ParentNode:
			v = tn.value
		default:
			return true
		}
		switch v.(type) {
		case *Node, *NodeList:
			n.SetSemantic(copyValue(v, m))
		}
		return true
	})
	linkSemantics(pn)
}

// ReplaceNode puts repl in the place of old within the tree rooted at root.
// It returns ErrNotInTree if old is not found.
func ReplaceNode(root ParseNode, old, repl ParseNode) error {
	var found bool
	Walk(root, func(n ParseNode) bool {
		if found {
			return false
		}
		if n.replaceChild(old, repl) {
			found = true
			return false
		}
		return true
	})
	if !found {
		return ErrNotInTree
	}
	return nil
}
