package parselet

// file rebuild.go has the pieces needed to put a parse tree back together
// outside of a parse, such as when it is read back from a binary cache.

// NewToken creates a token over the characters start to end of in.
func NewToken(in *Input, start, end int) StringToken {
	return newToken(in, start, end)
}

// NewParentNodeAt creates a parent node whose text began at input index
// start.
func NewParentNodeAt(pl Parselet, start int, children []Element) *ParentNode {
	return &ParentNode{parselet: pl, start: start, children: children}
}

// NewLeafNodeAt creates a leaf node whose text began at input index start.
func NewLeafNodeAt(pl Parselet, start int, child Element) *LeafNode {
	return &LeafNode{parselet: pl, start: start, child: child}
}

// ExplicitValue returns the value set on the leaf itself, as opposed to the
// one it takes from its child.
func (n *LeafNode) ExplicitValue() (any, bool) {
	return n.value, n.hasValue
}

// NewSpacingNode creates an unformatted spacing node for pl.
func NewSpacingNode(pl Parselet) *SpacingNode {
	return &SpacingNode{parselet: pl}
}

// Text returns the text chosen for the node, if it has been formatted.
func (n *SpacingNode) Text() (string, bool) {
	if n.text == nil {
		return "", false
	}
	return *n.text, true
}

// SetText fixes the node's text as if it had been formatted.
func (n *SpacingNode) SetText(s string) {
	n.text = &s
}

// NewNewlineNode creates an unformatted newline node for pl.
func NewNewlineNode(pl Parselet) *NewlineNode {
	return &NewlineNode{parselet: pl}
}

// Text returns the text chosen for the node and the indent level after it,
// if it has been formatted.
func (n *NewlineNode) Text() (string, int, bool) {
	if n.text == nil {
		return "", 0, false
	}
	return *n.text, n.level, true
}

// SetText fixes the node's text and indent level as if it had been
// formatted.
func (n *NewlineNode) SetText(s string, level int) {
	n.text = &s
	n.level = level
}

// NewErrorNode creates an error node covering start to end of in.
func NewErrorNode(in *Input, start, end int, err *ParseError) *ErrorNode {
	return &ErrorNode{Err: err, token: newToken(in, start, end)}
}

// NewNode creates an empty node of the type the sequence produces, with the
// sequence as its origin. It returns nil if the sequence produces no node.
func (s *Sequence) NewNode() *Node {
	if s.nodeType == nil {
		return nil
	}
	n := s.nodeType.New()
	n.origin = s
	return n
}

// NewNodeListFrom creates a list whose origin is pl.
func NewNodeListFrom(origin Parselet, items ...any) *NodeList {
	l := NewNodeList(items...)
	l.origin = origin
	return l
}

// Rebuild works out the semantic values of the tree under pn from its
// children, the same way parsing does, and links each value back to its
// parse node. Values set explicitly on leaf nodes are kept.
func Rebuild(pn ParseNode) {
	rebuildValues(pn)
	linkSemantics(pn)
}

func rebuildValues(pn ParseNode) {
	for _, c := range pn.Children() {
		if cpn, ok := c.(ParseNode); ok && cpn != nil {
			rebuildValues(cpn)
		}
	}

	n, ok := pn.(*ParentNode)
	if !ok {
		return
	}
	switch pl := n.parselet.(type) {
	case *Sequence:
		if !pl.repeats() {
			n.value = pl.valueOf(n.children)
			return
		}
		var values []any
		width := len(pl.items)
		for i := 0; width > 0 && i+width <= len(n.children); i += width {
			values = append(values, pl.valueOf(n.children[i:i+width]))
		}
		n.value = pl.repeatValue(values)
	case *OrderedChoice, *IndexedChoice:
		n.value = repeatedChoiceValue(pl, n.children)
	}
}
