package parselet

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

type valueKinds uint8

const (
	kindNil valueKinds = 1 << iota
	kindText
	kindList
)

// produceSet is what kinds of semantic value a parselet can produce. It lets
// choices skip alternatives that could never generate a value.
type produceSet struct {
	kinds   valueKinds
	types   map[*NodeType]bool
	anyNode bool
}

func (ps *produceSet) merge(o produceSet) bool {
	changed := false
	if ps.kinds|o.kinds != ps.kinds {
		ps.kinds |= o.kinds
		changed = true
	}
	if o.anyNode && !ps.anyNode {
		ps.anyNode = true
		changed = true
	}
	for t := range o.types {
		if !ps.types[t] {
			if ps.types == nil {
				ps.types = map[*NodeType]bool{}
			}
			ps.types[t] = true
			changed = true
		}
	}
	return changed
}

func (ps produceSet) hasNodes() bool {
	return ps.anyNode || len(ps.types) > 0
}

func (ps produceSet) accepts(v any) bool {
	switch tv := v.(type) {
	case nil:
		return true
	case *Node:
		return ps.anyNode || ps.types[tv.typ]
	case *NodeList, *ArrayCursor:
		return ps.kinds&kindList != 0
	default:
		return ps.kinds&kindText != 0
	}
}

func (l *Language) computeProduces() {
	for changed := true; changed; {
		changed = false
		for _, pl := range l.parselets {
			c := pl.core()

			var once produceSet
			switch tp := pl.(type) {
			case *Symbol, *SymbolChoice:
				once.kinds = kindText
			case *Spacing:
				once.kinds = kindNil
			case *Sequence:
				switch tp.result {
				case resultNode:
					if tp.nodeType.anonymous {
						once.anyNode = true
					} else {
						once.types = map[*NodeType]bool{tp.nodeType: true}
					}
				case resultString:
					once.kinds = kindText
				case resultArray:
					once.kinds = kindList
				case resultPropagate:
					for i, m := range tp.mapping {
						if m.Kind == MapPropagate {
							once.merge(tp.items[i].core().produces)
						}
					}
				default:
					once.kinds = kindNil
				}
			default:
				for _, alt := range pl.children() {
					once.merge(alt.core().produces)
				}
			}

			all := once
			if c.repeats() {
				all = produceSet{kinds: once.kinds & (kindText | kindNil)}
				if once.hasNodes() || once.kinds&kindList != 0 {
					all.kinds |= kindList
				}
			}
			if c.optional() || c.zeroWidth() {
				all.kinds |= kindNil
			}

			if c.once.merge(once) {
				changed = true
			}
			if c.produces.merge(all) {
				changed = true
			}
		}
	}
}

func producesList(pl Parselet) bool {
	return pl.core().produces.kinds&kindList != 0
}

// ArrayCursor walks the elements of a list being generated. Repeating
// children share a cursor so each takes the elements left over by the ones
// before it.
type ArrayCursor struct {
	items []any
	pos   int
}

func newArrayCursor(items []any) *ArrayCursor {
	return &ArrayCursor{items: items}
}

// cursorFor returns a cursor over v. owned is false when v already was a
// cursor belonging to a caller.
func cursorFor(v any) (cur *ArrayCursor, owned bool) {
	switch tv := v.(type) {
	case *ArrayCursor:
		return tv, false
	case *NodeList:
		return newArrayCursor(tv.Items()), true
	case nil:
		return newArrayCursor(nil), true
	default:
		return newArrayCursor([]any{v}), true
	}
}

// Done returns whether every element has been taken.
func (c *ArrayCursor) Done() bool { return c.pos >= len(c.items) }

// Pos returns the number of elements taken.
func (c *ArrayCursor) Pos() int { return c.pos }

// Remaining returns the number of elements not yet taken.
func (c *ArrayCursor) Remaining() int { return len(c.items) - c.pos }

// Peek returns the next element without taking it.
func (c *ArrayCursor) Peek() any {
	if c.Done() {
		return nil
	}
	return c.items[c.pos]
}

// Next takes the next element.
func (c *ArrayCursor) Next() any {
	v := c.Peek()
	if !c.Done() {
		c.pos++
	}
	return v
}

// GenerateOptions changes how generation runs.
type GenerateOptions struct {
	// Log receives debug output. Nothing is logged when it is nil.
	Log logrus.FieldLogger

	// Stats, if set, is filled with counters from the generation.
	Stats *GenerateStats
}

// GenerateStats holds counters gathered while generating.
type GenerateStats struct {
	// Attempts is the number of times any parselet was asked to generate.
	Attempts int

	// Backtracks is the number of choice alternatives that failed.
	Backtracks int

	// ChainLinks is the number of left-recursive links generated as a chain.
	ChainLinks int
}

// GenerateContext holds the state of one generation. It is not safe for
// concurrent use.
type GenerateContext struct {
	lang   *Language
	masks  map[maskKey]Element
	active map[activeKey]bool
	stats  GenerateStats
	log    logrus.FieldLogger
}

type maskKey struct {
	n    *Node
	prop string
}

// activeKey identifies a generation in progress. pos is the cursor position
// when v is an *ArrayCursor.
type activeKey struct {
	pl  Parselet
	v   any
	pos int
}

func activeKeyFor(pl Parselet, v any) (activeKey, bool) {
	switch tv := v.(type) {
	case *ArrayCursor:
		return activeKey{pl: pl, v: tv, pos: tv.pos}, true
	case nil, *Node, *NodeList, string, rune, bool, int, uint, int64, float32, float64:
		return activeKey{pl: pl, v: v}, true
	}
	return activeKey{}, false
}

func newGenerateContext(l *Language, opts GenerateOptions) *GenerateContext {
	return &GenerateContext{
		lang:   l,
		masks:  map[maskKey]Element{},
		active: map[activeKey]bool{},
		log:    opts.Log,
	}
}

// mask makes the text for property prop of n be el instead of being
// generated.
func (ctx *GenerateContext) mask(n *Node, prop string, el Element) {
	ctx.masks[maskKey{n: n, prop: prop}] = el
}

func (ctx *GenerateContext) unmask(n *Node, prop string) {
	delete(ctx.masks, maskKey{n: n, prop: prop})
}

func (ctx *GenerateContext) masked(n *Node, prop string) (Element, bool) {
	el, ok := ctx.masks[maskKey{n: n, prop: prop}]
	return el, ok
}

func (ctx *GenerateContext) isMasked(n *Node, prop string) bool {
	_, ok := ctx.masked(n, prop)
	return ok
}

func (ctx *GenerateContext) canProduce(pl Parselet, v any) bool {
	return pl.core().produces.accepts(v)
}

func (ctx *GenerateContext) canProduceOnce(pl Parselet, v any) bool {
	return pl.core().once.accepts(v)
}

// generateChild generates v with pl and wraps the result in a node of pl's
// own the same way parsing would.
func (ctx *GenerateContext) generateChild(pl Parselet, v any) (Element, *GenerateError) {
	c := pl.core()
	ctx.stats.Attempts++
	if c.zeroWidth() {
		return nil, nil
	}

	// a parselet asked for the same value it is already generating would
	// only loop, as through parentheses around an expression.
	if key, ok := activeKeyFor(pl, v); ok {
		if ctx.active[key] {
			return nil, &GenerateError{Parselet: pl, Value: v, Message: "value leads back to itself"}
		}
		ctx.active[key] = true
		defer delete(ctx.active, key)
	}

	el, err := pl.generate(ctx, v)
	if err != nil {
		return nil, err
	}
	if el == nil || c.opts.Has(Skip) {
		return el, nil
	}
	if pn, ok := el.(ParseNode); ok {
		if pn.Parselet() == pl {
			return pn, nil
		}
		return &LeafNode{parselet: pl, start: -1, child: el}, nil
	}
	leaf := &LeafNode{parselet: pl, start: -1, child: el}
	if v != nil {
		leaf.value, leaf.hasValue = v, true
	}
	return leaf, nil
}

// generateFromText checks that str is text pl would match and gives it as a
// literal.
func (ctx *GenerateContext) generateFromText(pl Parselet, str string) (Element, *GenerateError) {
	in := NewStringInput(str)
	p := NewParser(ctx.lang, in, ParseOptions{})
	_, perr := p.parseAt(pl, 0)
	if perr != nil || !in.AtEOF(p.pos) {
		return nil, &GenerateError{Parselet: pl, Value: str, Message: fmt.Sprintf("%q is not valid text for %s", str, describe(pl))}
	}
	if str == "" {
		return nil, nil
	}
	return Literal(str), nil
}

// Generate builds a parse tree for v using pl, or the start parselet if pl is
// nil. The tree's formatting nodes get their text when it is formatted. A
// failed generation returns a *GenerateError.
func (l *Language) Generate(pl Parselet, v any) (ParseNode, error) {
	return l.GenerateWith(pl, v, GenerateOptions{})
}

// GenerateWith is Generate with options.
func (l *Language) GenerateWith(pl Parselet, v any, opts GenerateOptions) (ParseNode, error) {
	if err := l.Init(); err != nil {
		return nil, err
	}
	if pl == nil {
		pl = l.start
	}
	if pl.Language() != l {
		return nil, fmt.Errorf("parselet %s is not part of language %s", describe(pl), l.Name)
	}

	ctx := newGenerateContext(l, opts)
	el, err := ctx.generateChild(pl, v)
	if opts.Stats != nil {
		*opts.Stats = ctx.stats
	}
	if err != nil {
		if ctx.log != nil {
			ctx.log.WithFields(logrus.Fields{
				"parselet": describe(pl),
				"progress": err.Progress,
				"attempts": ctx.stats.Attempts,
			}).Debug("generation failed")
		}
		return nil, err
	}

	root := rootNode(pl, el, -1)
	linkSemantics(root)
	return root, nil
}

// GenerateNode builds a parse tree for n using the parselet that produced it,
// or the language's first sequence for n's type when n was built by hand.
func (l *Language) GenerateNode(n *Node) (ParseNode, error) {
	pl := n.Origin()
	if pl == nil || pl.Language() != l {
		pl = l.ParseletForType(n.Type())
	}
	if pl == nil {
		return nil, &GenerateError{Value: n, Message: fmt.Sprintf("language %s has no parselet for %s", l.Name, n.Type().Name)}
	}
	return l.Generate(pl, n)
}

// Print generates text for v using the start parselet.
func (l *Language) Print(v any) (string, error) {
	pn, err := l.Generate(nil, v)
	if err != nil {
		return "", err
	}
	return Format(pn), nil
}

// Regenerate rebuilds the parse tree of n after n was changed. The new
// subtree is generated with the parselet that made n's old parse node and
// takes that node's place in the tree of n's root value. The returned node is
// the new parse node for n; when n is itself the root, the caller should use
// it in place of the old root.
func Regenerate(n *Node) (ParseNode, error) {
	old := n.parseNode
	if old == nil {
		return nil, ErrNoParseNode
	}
	pl := old.Parselet()
	repl, err := pl.Language().Generate(pl, n)
	if err != nil {
		return nil, err
	}

	var root ParseNode
	for v := n.parent; v != nil; {
		switch tv := v.(type) {
		case *Node:
			if tv.parseNode != nil {
				root = tv.parseNode
			}
			v = tv.parent
		case *NodeList:
			if tv.parseNode != nil {
				root = tv.parseNode
			}
			v = tv.parent
		default:
			v = nil
		}
	}
	if root == nil {
		return repl, nil
	}
	if err := ReplaceNode(root, old, repl); err != nil {
		return nil, err
	}
	return repl, nil
}
