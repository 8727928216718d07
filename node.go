package parselet

import (
	"fmt"
	"strings"
)

// NodeType describes the shape of a semantic node: its name and its ordered
// list of properties.
type NodeType struct {
	Name  string
	Props []string

	// Block marks nodes of this type as introducing a level of indentation
	// for the values nested inside them.
	Block bool

	anonymous bool
	index     map[string]int
}

// NewNodeType creates a NodeType with the given properties in declaration
// order.
func NewNodeType(name string, props ...string) *NodeType {
	nt := &NodeType{Name: name}
	for _, p := range props {
		nt.addProp(p)
	}
	return nt
}

// NewBlockType creates a NodeType whose nodes increase the nesting depth of
// everything inside them.
func NewBlockType(name string, props ...string) *NodeType {
	nt := NewNodeType(name, props...)
	nt.Block = true
	return nt
}

func (nt *NodeType) addProp(p string) {
	if nt.index == nil {
		nt.index = map[string]int{}
	}
	if _, ok := nt.index[p]; ok {
		return
	}
	nt.index[p] = len(nt.Props)
	nt.Props = append(nt.Props, p)
}

// Has returns whether the type declares the given property.
func (nt *NodeType) Has(prop string) bool {
	_, ok := nt.index[prop]
	return ok
}

// Anonymous returns whether the type was made up for an untyped sequence
// that still collects named properties.
func (nt *NodeType) Anonymous() bool {
	return nt.anonymous
}

// New creates an empty node of this type.
func (nt *NodeType) New() *Node {
	return &Node{typ: nt, values: make([]any, len(nt.Props))}
}

func (nt *NodeType) String() string {
	return nt.Name
}

// Node is a semantic value with a NodeType and a value for each of the type's
// properties. Property values are nil, a scalar (string, bool, rune, or one of
// the numeric types), another *Node, or a *NodeList.
type Node struct {
	typ    *NodeType
	values []any

	parent    any
	parseNode ParseNode
	origin    Parselet
}

// Type returns the node's type.
func (n *Node) Type() *NodeType {
	return n.typ
}

// Get returns the value of the given property, or nil if the property is
// unset or not part of the type.
func (n *Node) Get(prop string) any {
	idx, ok := n.typ.index[prop]
	if !ok {
		return nil
	}
	return n.values[idx]
}

// Set sets the value of the given property. Nodes and lists assigned to a
// property have their parent set to n. Setting a property the type does not
// declare panics.
func (n *Node) Set(prop string, v any) {
	idx, ok := n.typ.index[prop]
	if !ok {
		panic(fmt.Sprintf("node type %s has no property %q", n.typ.Name, prop))
	}
	n.values[idx] = v
	setParent(v, n)
}

// Values returns the property values in declaration order.
func (n *Node) Values() []any {
	out := make([]any, len(n.values))
	copy(out, n.values)
	return out
}

// Parent returns the node or list this node is a value of. It is nil for a
// root node.
func (n *Node) Parent() any {
	return n.parent
}

// ParseNode returns the parse node whose value this node is.
func (n *Node) ParseNode() ParseNode {
	return n.parseNode
}

// Origin returns the parselet that produced this node, or nil for nodes built
// by hand.
func (n *Node) Origin() Parselet {
	return n.origin
}

// NestingDepth returns the number of block-type ancestors of the node.
func (n *Node) NestingDepth() int {
	return nestingDepth(n.parent)
}

func (n *Node) String() string {
	var sb strings.Builder
	writeValue(&sb, n)
	return sb.String()
}

// NodeList is an ordered list of semantic values.
type NodeList struct {
	items []any

	parent    any
	parseNode ParseNode
	origin    Parselet
}

// NewNodeList creates a list holding the given items.
func NewNodeList(items ...any) *NodeList {
	l := &NodeList{}
	for _, it := range items {
		l.Add(it)
	}
	return l
}

// Len returns the number of items in the list.
func (l *NodeList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Get returns the item at index i.
func (l *NodeList) Get(i int) any {
	return l.items[i]
}

// Set replaces the item at index i.
func (l *NodeList) Set(i int, v any) {
	l.items[i] = v
	setParent(v, l)
}

// Add appends v to the list.
func (l *NodeList) Add(v any) {
	l.items = append(l.items, v)
	setParent(v, l)
}

// Insert puts v at index i, shifting later items back.
func (l *NodeList) Insert(i int, v any) {
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = v
	setParent(v, l)
}

// Remove deletes the item at index i.
func (l *NodeList) Remove(i int) {
	l.items = append(l.items[:i], l.items[i+1:]...)
}

// Items returns a copy of the list's items.
func (l *NodeList) Items() []any {
	out := make([]any, len(l.items))
	copy(out, l.items)
	return out
}

// Parent returns the node this list is a property of.
func (l *NodeList) Parent() any {
	return l.parent
}

// ParseNode returns the parse node whose value this list is.
func (l *NodeList) ParseNode() ParseNode {
	return l.parseNode
}

// Origin returns the parselet that produced this list.
func (l *NodeList) Origin() Parselet {
	return l.origin
}

// NestingDepth returns the number of block-type ancestors of the list.
func (l *NodeList) NestingDepth() int {
	return nestingDepth(l.parent)
}

func (l *NodeList) String() string {
	var sb strings.Builder
	writeValue(&sb, l)
	return sb.String()
}

func setParent(v any, parent any) {
	switch tv := v.(type) {
	case *Node:
		tv.parent = parent
	case *NodeList:
		tv.parent = parent
	}
}

func setParseNode(v any, pn ParseNode) {
	switch tv := v.(type) {
	case *Node:
		tv.parseNode = pn
	case *NodeList:
		tv.parseNode = pn
	}
}

func nestingDepth(parent any) int {
	depth := 0
	for parent != nil {
		switch p := parent.(type) {
		case *Node:
			if p.typ.Block {
				depth++
			}
			parent = p.parent
		case *NodeList:
			parent = p.parent
		default:
			return depth
		}
	}
	return depth
}

// valueDepth gives the nesting depth used for indenting the text of v. Lists
// use their first node.
func valueDepth(v any) (int, bool) {
	switch tv := v.(type) {
	case *Node:
		return tv.NestingDepth(), true
	case *NodeList:
		if len(tv.items) > 0 {
			if first, ok := tv.items[0].(*Node); ok {
				return first.NestingDepth(), true
			}
		}
		return tv.NestingDepth() + 1, true
	default:
		return 0, false
	}
}

// ValueString renders a semantic value of any kind the way Node.String does.
func ValueString(v any) string {
	var sb strings.Builder
	writeValue(&sb, v)
	return sb.String()
}

func writeValue(sb *strings.Builder, v any) {
	switch tv := v.(type) {
	case nil:
		sb.WriteString("null")
	case *Node:
		sb.WriteString(tv.typ.Name)
		sb.WriteRune('{')
		for i, p := range tv.typ.Props {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p)
			sb.WriteRune('=')
			writeValue(sb, tv.values[i])
		}
		sb.WriteRune('}')
	case *NodeList:
		sb.WriteRune('[')
		for i, it := range tv.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, it)
		}
		sb.WriteRune(']')
	case string:
		sb.WriteString(fmt.Sprintf("%q", tv))
	case rune:
		sb.WriteString(fmt.Sprintf("%q", tv))
	default:
		sb.WriteString(fmt.Sprintf("%v", tv))
	}
}

// NodesEqual returns whether two semantic values are structurally equal.
// Nodes are equal when their types have the same name and all property values
// are equal. Parents and parse nodes are not compared.
func NodesEqual(a, b any) bool {
	switch ta := a.(type) {
	case nil:
		return b == nil
	case *Node:
		tb, ok := b.(*Node)
		if !ok || ta == nil || tb == nil {
			return ok && ta == tb
		}
		if ta.typ.Name != tb.typ.Name || len(ta.values) != len(tb.values) {
			return false
		}
		for i, p := range ta.typ.Props {
			if !NodesEqual(ta.values[i], tb.Get(p)) {
				return false
			}
		}
		return true
	case *NodeList:
		tb, ok := b.(*NodeList)
		if !ok {
			return false
		}
		if ta.Len() != tb.Len() {
			return false
		}
		for i := range ta.items {
			if !NodesEqual(ta.items[i], tb.items[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// CopyValue returns a deep copy of the semantic value v. Nodes and lists
// already present as keys in m are replaced by their mapped value instead of
// copied, and every copy made is recorded in m. m may be nil.
func CopyValue(v any, m map[any]any) any {
	if m == nil {
		m = map[any]any{}
	}
	return copyValue(v, m)
}

func copyValue(v any, m map[any]any) any {
	switch tv := v.(type) {
	case *Node:
		if sub, ok := m[tv]; ok {
			return sub
		}
		cp := &Node{typ: tv.typ, values: make([]any, len(tv.values)), origin: tv.origin}
		m[tv] = cp
		for i, pv := range tv.values {
			cp.values[i] = copyValue(pv, m)
			setParent(cp.values[i], cp)
		}
		return cp
	case *NodeList:
		if sub, ok := m[tv]; ok {
			return sub
		}
		cp := &NodeList{items: make([]any, len(tv.items)), origin: tv.origin}
		m[tv] = cp
		for i, it := range tv.items {
			cp.items[i] = copyValue(it, m)
			setParent(cp.items[i], cp)
		}
		return cp
	default:
		return v
	}
}

// asText converts a scalar semantic value to the text it would be parsed
// from.
func asText(v any) (string, bool) {
	switch tv := v.(type) {
	case string:
		return tv, true
	case rune:
		return string(tv), true
	case bool, int, uint, int64, float32, float64:
		return fmt.Sprint(tv), true
	default:
		return "", false
	}
}
