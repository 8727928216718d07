package parselet

import (
	"fmt"
	"strings"
)

type resultKind int

const (
	resultNone resultKind = iota
	resultString
	resultPropagate
	resultArray
	resultNode
)

// Sequence matches its children one after another. Its descriptor says how
// the children's values become the value of the sequence: see the descriptor
// forms accepted by NewSequence.
type Sequence struct {
	parseletCore
	desc    descriptor
	items   []Parselet
	mapping []Mapping

	// set by Language.Init.
	nodeType  *NodeType
	result    resultKind
	chainProp string
}

// NewSequence creates a Sequence. desc is either a rule name ("expr" or
// "<expr>"), in which case the sequence's value is its text, or a mapping
// descriptor such as "BinaryExpr(lhs,,op,,rhs)" with one slot per child:
//
//	name  store the child's value in property name
//	''    add the child's text to a string value
//	.     use the child's value as the sequence's value
//	[]    add the child's value to a list value
//	^     copy the properties of the child's node into this one
//	      (empty) ignore the child's value
//
// A descriptor with no type name and named slots produces nodes of an
// anonymous type.
func NewSequence(desc string, opts Options, items ...Parselet) *Sequence {
	d, err := parseDescriptor(desc)
	if err != nil {
		panic(fmt.Sprintf("NewSequence(%q): %v", desc, err))
	}
	return &Sequence{
		parseletCore: parseletCore{name: d.name, opts: opts},
		desc:         d,
		items:        items,
	}
}

// Add appends children to the sequence. It is for building grammars with
// cycles, where a child has to exist before the sequence can be completed.
func (s *Sequence) Add(items ...Parselet) *Sequence {
	s.items = append(s.items, items...)
	return s
}

// Items returns the sequence's children.
func (s *Sequence) Items() []Parselet { return s.items }

// Mapping returns the resolved slot mappings, one per child. It is only
// complete once the Language is initialized.
func (s *Sequence) Mapping() []Mapping { return s.mapping }

// NodeType returns the type of node the sequence produces, or nil.
func (s *Sequence) NodeType() *NodeType { return s.nodeType }

func (s *Sequence) children() []Parselet { return s.items }

func (s *Sequence) String() string {
	if s.name != "" {
		return decorate(s.name, s.opts)
	}
	return decorate("("+describeList(s.items, " ")+")", s.opts)
}

func describeList(items []Parselet, sep string) string {
	parts := make([]string, len(items))
	for i, it := range items {
		switch it.(type) {
		case *Symbol, *SymbolChoice:
			parts[i] = it.String()
		default:
			if it.Name() != "" {
				parts[i] = it.String()
			} else {
				parts[i] = "(...)"
			}
		}
	}
	return strings.Join(parts, sep)
}

func (s *Sequence) parse(p *Parser) (Element, *ParseError) {
	if s.repeats() {
		return s.parseRepeat(p)
	}

	start := p.pos
	children, err := s.parseOnce(p)
	if err != nil {
		return s.failed(p, start, err, false)
	}
	if s.result == resultNone && allNil(children) && s.nodeType == nil && p.pos == start {
		return nil, nil
	}

	node := &ParentNode{parselet: s, start: start, children: children}
	node.value = s.valueOf(children)
	return node, nil
}

// parseOnce matches every child once. On failure the error's partial value,
// if partial values are on, holds what was matched.
func (s *Sequence) parseOnce(p *Parser) ([]Element, *ParseError) {
	start := p.pos
	children := make([]Element, len(s.items))
	for i, item := range s.items {
		el, err := p.ParseNext(item)
		if err != nil {
			p.pos = start
			if p.partialValues {
				children[i] = err.PartialValue
				partial := &ParentNode{parselet: s, start: start, children: children}
				partial.value = s.valueOf(children)
				err = err.withPartial(partial, false)
			}
			return nil, err
		}
		children[i] = el
	}
	return children, nil
}

// failed turns the error of a child into the error of the sequence.
func (s *Sequence) failed(p *Parser, start int, childErr *ParseError, inRepeat bool) (Element, *ParseError) {
	p.pos = start

	keepPartial := p.partialValues && childErr.EOF && childErr.End > start
	if s.optional() && !inRepeat && !keepPartial {
		return nil, nil
	}

	if !s.reportsOwn() {
		return nil, childErr
	}
	err := p.fail(s, start, childErr.End, CodeExpected, s.String())
	err.Cause = childErr
	err.EOF = childErr.EOF
	err.PartialValue = childErr.PartialValue
	return nil, err
}

func (s *Sequence) parseRepeat(p *Parser) (Element, *ParseError) {
	start := p.pos
	node := &ParentNode{parselet: s, start: start}
	var values []any
	var lastErr *ParseError

	for {
		iterStart := p.pos
		children, err := s.parseOnce(p)
		if err != nil {
			lastErr = err
			break
		}
		if allNil(children) && p.pos == iterStart {
			break
		}
		node.children = append(node.children, children...)
		values = append(values, s.valueOf(children))
		if p.pos == iterStart {
			break
		}
	}

	if len(values) == 0 {
		if s.optional() && !(p.partialValues && lastErr != nil && lastErr.EOF && lastErr.End > start) {
			return nil, nil
		}
		if lastErr == nil {
			return nil, p.fail(s, start, start, CodeExpectedRepeat, s.String())
		}
		if !s.reportsOwn() {
			return nil, lastErr
		}
		err := p.fail(s, start, lastErr.End, CodeExpectedRepeat, s.String())
		err.Cause = lastErr
		err.EOF = lastErr.EOF
		err.PartialValue = lastErr.PartialValue
		return nil, err
	}

	node.value = s.repeatValue(values)

	// a further repetition that ran out of input is reported so that callers
	// asking for partial values can see what was being typed.
	if p.partialValues && lastErr != nil && lastErr.EOF && lastErr.End > p.pos && lastErr.PartialValue != nil {
		cont := &ParentNode{parselet: s, start: start, children: append(append([]Element{}, node.children...), lastErr.PartialValue.Children()...)}
		cont.value = node.value
		err := lastErr.withPartial(cont, true)
		p.pos = start
		return nil, err
	}

	return node, nil
}

func allNil(els []Element) bool {
	for _, e := range els {
		if e != nil {
			return false
		}
	}
	return true
}

// valueOf builds the value of one match of the sequence from its children.
func (s *Sequence) valueOf(children []Element) any {
	switch s.result {
	case resultNode:
		n := s.nodeType.New()
		n.origin = s
		for i, m := range s.mapping {
			if i >= len(children) || children[i] == nil {
				continue
			}
			switch m.Kind {
			case MapNamed:
				n.Set(m.Prop, semanticOf(children[i]))
			case MapInherit:
				inheritProps(n, semanticOf(children[i]))
			}
		}
		return n
	case resultArray:
		list := &NodeList{origin: s}
		for i, m := range s.mapping {
			if m.Kind == MapArray && i < len(children) {
				addFlattened(list, semanticOf(children[i]))
			}
		}
		return list
	case resultPropagate:
		for i, m := range s.mapping {
			if m.Kind == MapPropagate && i < len(children) && children[i] != nil {
				if v := semanticOf(children[i]); v != nil {
					return v
				}
			}
		}
		return nil
	case resultString:
		var sb strings.Builder
		for i, m := range s.mapping {
			if m.Kind == MapString && i < len(children) {
				writeText(&sb, children[i])
			}
		}
		return sb.String()
	default:
		return nil
	}
}

// repeatValue combines the values of each repetition.
func (s *Sequence) repeatValue(values []any) any {
	switch s.result {
	case resultNone:
		return nil
	case resultString:
		var sb strings.Builder
		for _, v := range values {
			if str, ok := v.(string); ok {
				sb.WriteString(str)
			}
		}
		return sb.String()
	default:
		list := &NodeList{origin: s}
		for _, v := range values {
			addFlattened(list, v)
		}
		return list
	}
}

func inheritProps(n *Node, v any) {
	bag, ok := v.(*Node)
	if !ok {
		return
	}
	for i, prop := range bag.typ.Props {
		if bag.values[i] != nil && n.typ.Has(prop) {
			n.Set(prop, bag.values[i])
		}
	}
}

func addFlattened(list *NodeList, v any) {
	switch tv := v.(type) {
	case nil:
	case *NodeList:
		for _, it := range tv.items {
			list.Add(it)
		}
	default:
		list.Add(v)
	}
}

func (s *Sequence) generate(ctx *GenerateContext, v any) (Element, *GenerateError) {
	if s.repeats() {
		return s.generateRepeat(ctx, v)
	}

	switch s.result {
	case resultString:
		if v != nil {
			str, ok := asText(v)
			if !ok {
				return nil, &GenerateError{Parselet: s, Value: v, Message: fmt.Sprintf("cannot generate %T as text", v)}
			}
			return ctx.generateFromText(s, str)
		}
		if s.optional() {
			return nil, nil
		}
	case resultNone:
		if v != nil && !s.optional() {
			return nil, &GenerateError{Parselet: s, Value: v, Message: "sequence produces no value"}
		}
		if v != nil || s.optional() {
			return nil, nil
		}
	case resultNode:
		if v == nil {
			if s.optional() {
				return nil, nil
			}
			return nil, &GenerateError{Parselet: s, Message: "no value to generate"}
		}
		n, ok := v.(*Node)
		if !ok || !s.accepts(n) {
			return nil, &GenerateError{Parselet: s, Value: v, Message: fmt.Sprintf("value is not a %s", s.typeName())}
		}
		if s.nodeType.anonymous && s.optional() && !s.hasAnyProp(n) {
			return nil, nil
		}
		if s.chainProp != "" && n.typ == s.nodeType && !ctx.isMasked(n, s.chainProp) {
			if inner, ok := n.Get(s.chainProp).(*Node); ok && inner.typ == s.nodeType {
				return s.generateChain(ctx, n)
			}
		}
	case resultArray:
		cur, owned := cursorFor(v)
		node, err := s.generateWithCursor(ctx, cur)
		if err != nil {
			return nil, err
		}
		if owned && !cur.Done() {
			err := &GenerateError{
				Parselet: s, Value: v,
				Message: fmt.Sprintf("%d list elements not generated", cur.Remaining()),
				Partial: &PartialArrayResult{Consumed: cur.Pos()},
			}
			if node != nil {
				err.Progress = node.Len()
				err.Partial.Node = node
			}
			return nil, err
		}
		if node == nil {
			return nil, nil
		}
		if owned {
			node.value = v
		}
		return node, nil
	case resultPropagate:
		if v == nil && s.optional() {
			return nil, nil
		}
	}

	children, progress, err := s.generateItems(ctx, v, nil)
	if err != nil {
		if s.optional() {
			return nil, nil
		}
		return nil, &GenerateError{Parselet: s, Value: v, Message: err.Message, Progress: progress, Cause: err}
	}
	node := &ParentNode{parselet: s, start: -1, children: children}
	if s.result == resultNode || s.result == resultPropagate {
		node.value = v
	}
	return node, nil
}

func (s *Sequence) typeName() string {
	if s.nodeType == nil {
		return "node"
	}
	return s.nodeType.Name
}

// accepts returns whether the sequence can generate n.
func (s *Sequence) accepts(n *Node) bool {
	if n.typ == s.nodeType {
		return true
	}
	if !s.nodeType.anonymous {
		return false
	}
	for _, p := range s.nodeType.Props {
		if !n.typ.Has(p) {
			return false
		}
	}
	return true
}

func (s *Sequence) hasAnyProp(n *Node) bool {
	for _, p := range s.nodeType.Props {
		if n.Get(p) != nil {
			return true
		}
	}
	return false
}

// generateItems generates each child once for v. ARRAY slots draw from cur.
func (s *Sequence) generateItems(ctx *GenerateContext, v any, cur *ArrayCursor) ([]Element, int, *GenerateError) {
	children := make([]Element, len(s.items))
	progress := 0

	for i, item := range s.items {
		m := s.mapping[i]

		var cv any
		switch m.Kind {
		case MapPropagate, MapInherit:
			cv = v
		case MapNamed:
			n, ok := v.(*Node)
			if !ok {
				return nil, progress, &GenerateError{Parselet: s, Value: v, Message: fmt.Sprintf("no node to read %q from", m.Prop)}
			}
			if masked, ok := ctx.masked(n, m.Prop); ok {
				children[i] = masked
				progress += masked.Len()
				continue
			}
			cv = n.Get(m.Prop)
		case MapArray:
			if cur == nil {
				cur = newArrayCursor(nil)
			}
			if producesList(item) {
				cv = cur
			} else if !cur.Done() && ctx.canProduce(item, cur.Peek()) {
				cv = cur.Next()
			} else if !item.core().optional() {
				return nil, progress, &GenerateError{Parselet: item, Message: "no list element left for slot"}
			}
		}

		mark := 0
		if cur != nil {
			mark = cur.pos
		}
		el, err := ctx.generateChild(item, cv)
		if err != nil {
			if cur != nil {
				cur.pos = mark
			}
			return nil, progress + err.Progress, err
		}
		children[i] = el
		if el != nil {
			progress += el.Len()
		}
	}

	return children, progress, nil
}

// generateWithCursor generates one match of an array-valued sequence, taking
// list elements from cur.
func (s *Sequence) generateWithCursor(ctx *GenerateContext, cur *ArrayCursor) (*ParentNode, *GenerateError) {
	mark := cur.pos
	children, progress, err := s.generateItems(ctx, nil, cur)
	if err != nil {
		cur.pos = mark
		if s.optional() {
			return nil, nil
		}
		return nil, &GenerateError{Parselet: s, Message: err.Message, Progress: progress, Cause: err}
	}
	return &ParentNode{parselet: s, start: -1, children: children}, nil
}

func (s *Sequence) generateRepeat(ctx *GenerateContext, v any) (Element, *GenerateError) {
	switch s.result {
	case resultString:
		if v == nil {
			if s.optional() {
				return nil, nil
			}
			return nil, &GenerateError{Parselet: s, Message: "no value to generate"}
		}
		str, ok := asText(v)
		if !ok {
			return nil, &GenerateError{Parselet: s, Value: v, Message: fmt.Sprintf("cannot generate %T as text", v)}
		}
		if str == "" && s.optional() {
			return nil, nil
		}
		return ctx.generateFromText(s, str)
	case resultNone:
		if s.optional() {
			return nil, nil
		}
		children, progress, err := s.generateItems(ctx, nil, nil)
		if err != nil {
			return nil, &GenerateError{Parselet: s, Message: err.Message, Progress: progress, Cause: err}
		}
		return &ParentNode{parselet: s, start: -1, children: children}, nil
	}

	cur, owned := cursorFor(v)
	start := cur.pos
	node := &ParentNode{parselet: s, start: -1}
	count := 0

	for !cur.Done() {
		mark := cur.pos
		var children []Element
		var err *GenerateError
		if s.result == resultArray {
			children, _, err = s.generateItems(ctx, nil, cur)
		} else {
			if !ctx.canProduceOnce(s, cur.Peek()) {
				break
			}
			children, _, err = s.generateItems(ctx, cur.Next(), nil)
		}
		if err != nil {
			cur.pos = mark
			if !owned && count > 0 {
				break
			}
			return nil, &GenerateError{
				Parselet: s, Value: v, Message: err.Message, Progress: node.Len() + err.Progress, Cause: err,
				Partial: &PartialArrayResult{Consumed: mark - start, Node: node},
			}
		}
		if cur.pos == mark {
			break
		}
		node.children = append(node.children, children...)
		count++
	}

	if count == 0 {
		if s.optional() {
			return nil, nil
		}
		return nil, &GenerateError{Parselet: s, Value: v, Message: "no elements to repeat"}
	}
	if owned && !cur.Done() {
		return nil, &GenerateError{
			Parselet: s, Value: v, Progress: node.Len(),
			Message: fmt.Sprintf("%d list elements not generated", cur.Remaining()),
			Partial: &PartialArrayResult{Consumed: cur.pos - start, Node: node},
		}
	}
	if owned {
		node.value = v
	}
	return node, nil
}

// generateChain generates a left-recursive chain such as a+b+c, which is
// held as nested nodes of the same type in the property the recursion goes
// through. The innermost link is generated first; each outer link then uses
// the text of the one inside it for that property.
func (s *Sequence) generateChain(ctx *GenerateContext, n *Node) (Element, *GenerateError) {
	chain := []*Node{n}
	for {
		inner, ok := chain[len(chain)-1].Get(s.chainProp).(*Node)
		if !ok || inner.typ != s.nodeType {
			break
		}
		chain = append(chain, inner)
	}

	var prev Element
	for i := len(chain) - 1; i >= 0; i-- {
		link := chain[i]
		if prev != nil {
			ctx.mask(link, s.chainProp, prev)
		}
		children, progress, err := s.generateItems(ctx, link, nil)
		if prev != nil {
			ctx.unmask(link, s.chainProp)
		}
		if err != nil {
			if i == 0 {
				return nil, &GenerateError{Parselet: s, Value: n, Message: err.Message, Progress: progress, Cause: err}
			}
			// let the next link generate this one through the child parselet
			prev = nil
			continue
		}
		node := &ParentNode{parselet: s, start: -1, children: children, value: link}
		ctx.stats.ChainLinks++
		prev = node
	}
	return prev, nil
}
