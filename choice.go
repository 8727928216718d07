package parselet

import (
	"fmt"
	"sort"
	"strings"
)

// OrderedChoice tries each of its alternatives in order and takes the first
// that matches.
type OrderedChoice struct {
	parseletCore
	alts []Parselet
}

// NewOrderedChoice creates an OrderedChoice over alts.
func NewOrderedChoice(name string, opts Options, alts ...Parselet) *OrderedChoice {
	return &OrderedChoice{parseletCore: parseletCore{name: name, opts: opts}, alts: alts}
}

// Add appends alternatives to the choice.
func (c *OrderedChoice) Add(alts ...Parselet) *OrderedChoice {
	c.alts = append(c.alts, alts...)
	return c
}

// Alternatives returns the alternatives in the order they are tried.
func (c *OrderedChoice) Alternatives() []Parselet { return c.alts }

func (c *OrderedChoice) children() []Parselet { return c.alts }

func (c *OrderedChoice) String() string {
	if c.name != "" {
		return decorate(c.name, c.opts)
	}
	return decorate("("+describeList(c.alts, " | ")+")", c.opts)
}

func (c *OrderedChoice) parse(p *Parser) (Element, *ParseError) {
	return parseChoice(p, c, func(int) []Parselet { return c.alts })
}

func (c *OrderedChoice) generate(ctx *GenerateContext, v any) (Element, *GenerateError) {
	return generateChoice(ctx, c, c.alts, v)
}

type indexEntry struct {
	key  []rune
	alts []Parselet
}

// IndexedChoice picks alternatives by the text at the current position. Each
// alternative is registered under a key; only alternatives whose key is a
// prefix of the upcoming input are tried, longest key first, followed by the
// defaults.
type IndexedChoice struct {
	parseletCore
	index    map[rune][]*indexEntry
	entries  []*indexEntry
	defaults []Parselet
}

// NewIndexedChoice creates an empty IndexedChoice.
func NewIndexedChoice(name string, opts Options) *IndexedChoice {
	return &IndexedChoice{
		parseletCore: parseletCore{name: name, opts: opts},
		index:        map[rune][]*indexEntry{},
	}
}

// Put registers alt under key. Several alternatives may share a key; they are
// tried in the order they were put.
func (c *IndexedChoice) Put(key string, alt Parselet) *IndexedChoice {
	if key == "" {
		panic("IndexedChoice.Put: empty key")
	}
	r := []rune(key)
	for _, e := range c.index[r[0]] {
		if string(e.key) == key {
			e.alts = append(e.alts, alt)
			return c
		}
	}
	e := &indexEntry{key: r, alts: []Parselet{alt}}
	c.entries = append(c.entries, e)
	c.index[r[0]] = append(c.index[r[0]], e)
	sort.SliceStable(c.index[r[0]], func(i, j int) bool {
		return len(c.index[r[0]][i].key) > len(c.index[r[0]][j].key)
	})
	return c
}

// AddDefault adds alternatives that are tried for any input, after the keyed
// ones.
func (c *IndexedChoice) AddDefault(alts ...Parselet) *IndexedChoice {
	c.defaults = append(c.defaults, alts...)
	return c
}

// Keys returns the registered keys in the order they were first put.
func (c *IndexedChoice) Keys() []string {
	keys := make([]string, len(c.entries))
	for i, e := range c.entries {
		keys[i] = string(e.key)
	}
	return keys
}

func (c *IndexedChoice) children() []Parselet {
	var all []Parselet
	for _, e := range c.entries {
		all = append(all, e.alts...)
	}
	return append(all, c.defaults...)
}

func (c *IndexedChoice) String() string {
	if c.name != "" {
		return decorate(c.name, c.opts)
	}
	var keys []string
	for _, e := range c.entries {
		keys = append(keys, fmt.Sprintf("'%s'", string(e.key)))
	}
	if len(c.defaults) > 0 {
		keys = append(keys, describeList(c.defaults, " | "))
	}
	return decorate("{"+strings.Join(keys, " | ")+"}", c.opts)
}

// candidates returns the alternatives worth trying at index i.
func (c *IndexedChoice) candidates(p *Parser, i int) []Parselet {
	ch, ok := p.in.CharAt(i)
	if !ok {
		return c.defaults
	}
	var alts []Parselet
	for _, e := range c.index[ch] {
		if p.in.HasPrefix(i, e.key) {
			alts = append(alts, e.alts...)
		}
	}
	if len(alts) == 0 {
		return c.defaults
	}
	return append(alts, c.defaults...)
}

func (c *IndexedChoice) parse(p *Parser) (Element, *ParseError) {
	return parseChoice(p, c, func(i int) []Parselet { return c.candidates(p, i) })
}

func (c *IndexedChoice) generate(ctx *GenerateContext, v any) (Element, *GenerateError) {
	return generateChoice(ctx, c, c.children(), v)
}

// parseChoice runs the matching shared by both choice kinds. alts gives the
// alternatives to try at an index.
func parseChoice(p *Parser, c Parselet, alts func(int) []Parselet) (Element, *ParseError) {
	core := c.core()
	if !core.repeats() {
		return parseChoiceOnce(p, c, alts(p.pos))
	}

	start := p.pos
	node := &ParentNode{parselet: c, start: start}
	var lastErr *ParseError
	for {
		iterStart := p.pos
		el, err := parseChoiceOnce(p, c, alts(iterStart))
		if err != nil {
			lastErr = err
			break
		}
		if el == nil || p.pos == iterStart {
			break
		}
		node.children = append(node.children, el)
	}

	if len(node.children) == 0 {
		if core.optional() {
			return nil, nil
		}
		if lastErr != nil && !core.reportsOwn() {
			return nil, lastErr
		}
		end := start
		if lastErr != nil {
			end = lastErr.End
		}
		return nil, p.fail(c, start, end, CodeExpectedRepeat, c.String())
	}

	node.value = repeatedChoiceValue(c, node.children)
	return node, nil
}

// repeatedChoiceValue is a list when any match produced a node, and the
// matched text otherwise.
func repeatedChoiceValue(c Parselet, children []Element) any {
	var hasNodes bool
	for _, ch := range children {
		switch semanticOf(ch).(type) {
		case *Node, *NodeList:
			hasNodes = true
		}
	}
	if !hasNodes {
		var sb strings.Builder
		for _, ch := range children {
			writeText(&sb, ch)
		}
		return sb.String()
	}
	list := &NodeList{origin: c}
	for _, ch := range children {
		addFlattened(list, semanticOf(ch))
	}
	return list
}

func parseChoiceOnce(p *Parser, c Parselet, alts []Parselet) (Element, *ParseError) {
	core := c.core()
	start := p.pos

	var best *ParseError
	for _, alt := range alts {
		el, err := p.ParseNext(alt)
		if err == nil {
			return el, nil
		}
		p.pos = start
		if best == nil || isBetterError(err, best) {
			best = err
		}
	}

	if best == nil {
		if core.optional() {
			return nil, nil
		}
		return nil, p.fail(c, start, start, CodeExpectedOneOf, c.String())
	}
	if core.optional() && !(p.partialValues && best.EOF && best.End > start) {
		return nil, nil
	}
	if !core.reportsOwn() {
		return nil, best
	}
	err := p.fail(c, start, best.End, CodeExpectedOneOf, c.String())
	err.Cause = best
	err.EOF = best.EOF
	err.PartialValue = best.PartialValue
	return nil, err
}

// generateChoice tries each alternative that can produce v and takes the
// first that succeeds. When all fail, the error of the one that got furthest
// is reported.
func generateChoice(ctx *GenerateContext, c Parselet, alts []Parselet, v any) (Element, *GenerateError) {
	core := c.core()
	if v == nil && core.optional() {
		return nil, nil
	}

	if core.repeats() {
		return generateChoiceRepeat(ctx, c, alts, v)
	}
	return generateChoiceOnce(ctx, c, alts, v)
}

func generateChoiceOnce(ctx *GenerateContext, c Parselet, alts []Parselet, v any) (Element, *GenerateError) {
	var best *GenerateError
	for _, alt := range alts {
		if !ctx.canProduce(alt, v) {
			continue
		}
		el, err := ctx.generateChild(alt, v)
		if err == nil {
			if el == nil && v != nil {
				continue
			}
			return el, nil
		}
		ctx.stats.Backtracks++
		if best == nil || err.Progress > best.Progress {
			best = err
		}
	}

	if best == nil {
		return nil, &GenerateError{Parselet: c, Value: v, Message: "no alternative can produce the value"}
	}
	return nil, &GenerateError{Parselet: c, Value: v, Message: "no alternative matches the value", Progress: best.Progress, Cause: best}
}

func generateChoiceRepeat(ctx *GenerateContext, c Parselet, alts []Parselet, v any) (Element, *GenerateError) {
	if str, ok := asText(v); ok {
		return ctx.generateFromText(c, str)
	}

	cur, owned := cursorFor(v)
	start := cur.pos
	node := &ParentNode{parselet: c, start: -1}
	for !cur.Done() {
		mark := cur.pos
		el, err := generateChoiceOnce(ctx, c, alts, cur.Next())
		if err != nil {
			cur.pos = mark
			if !owned && len(node.children) > 0 {
				break
			}
			return nil, &GenerateError{
				Parselet: c, Value: v, Message: err.Message, Progress: node.Len() + err.Progress, Cause: err,
				Partial: &PartialArrayResult{Consumed: mark - start, Node: node},
			}
		}
		node.children = append(node.children, el)
	}
	if len(node.children) == 0 {
		if c.core().optional() {
			return nil, nil
		}
		return nil, &GenerateError{Parselet: c, Value: v, Message: "no elements to repeat"}
	}
	if owned {
		node.value = v
	}
	return node, nil
}
