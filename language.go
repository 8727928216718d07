package parselet

import (
	"fmt"
	"hash/fnv"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dekarrin/parselet/internal/util"
)

// FirstID is the id given to the first parselet of a Language. Lower ids are
// left free for the binary formats to use as tags.
const FirstID = 16

// Language is a grammar: a graph of parselets reachable from a start
// parselet, plus the node types its sequences produce. A Language must be
// initialized before use; Parse and Generate do so on first call. Once
// initialized it is immutable and safe for concurrent use.
type Language struct {
	// Name is a human-readable name for the language.
	Name string

	// Extension is the file extension of source files in the language,
	// without the leading dot.
	Extension string

	// Indent is the text used for one level of indentation when formatting.
	// DefaultIndent is used if it is empty.
	Indent string

	start     Parselet
	types     map[string]*NodeType
	typeOrder []*NodeType

	once     sync.Once
	initDone atomic.Bool
	initErr  error

	parselets   []Parselet
	byName      map[string]Parselet
	byType      map[*NodeType]Parselet
	keywords    util.KeySet[string]
	fingerprint string
}

// NewLanguage creates a Language with the given start parselet. types declare
// node types ahead of time, which is how a type is made a block type or given
// a property order other than the one the grammar gives it.
func NewLanguage(name, ext string, start Parselet, types ...*NodeType) *Language {
	l := &Language{
		Name:      name,
		Extension: ext,
		start:     start,
		types:     map[string]*NodeType{},
	}
	for _, t := range types {
		l.addType(t)
	}
	return l
}

func (l *Language) addType(t *NodeType) {
	if _, ok := l.types[t.Name]; ok {
		return
	}
	if t.index == nil {
		t.index = map[string]int{}
	}
	l.types[t.Name] = t
	l.typeOrder = append(l.typeOrder, t)
}

// Start returns the start parselet.
func (l *Language) Start() Parselet {
	return l.start
}

func (l *Language) initialized() bool {
	return l.initDone.Load()
}

func (l *Language) mustInit() {
	if err := l.Init(); err != nil {
		panic(err)
	}
}

// Init analyzes the grammar: it numbers the parselets, resolves every
// sequence's mapping and node type, finds left recursion, and works out what
// kinds of value each parselet can produce. Calling it again returns the
// result of the first call.
func (l *Language) Init() error {
	l.once.Do(func() {
		l.initErr = l.init()
		l.initDone.Store(true)
	})
	return l.initErr
}

func (l *Language) init() error {
	if l.start == nil {
		return grammarErrorf(nil, "language %q has no start parselet", l.Name)
	}

	if err := l.collect(); err != nil {
		return err
	}
	if err := l.resolveSequences(); err != nil {
		return err
	}
	l.findLeftRecursion()
	l.computeProduces()

	l.byType = map[*NodeType]Parselet{}
	l.keywords = util.NewKeySet[string]()
	for _, pl := range l.parselets {
		switch tp := pl.(type) {
		case *Sequence:
			if tp.nodeType != nil && !tp.nodeType.anonymous {
				if _, ok := l.byType[tp.nodeType]; !ok {
					l.byType[tp.nodeType] = tp
				}
			}
		case *Symbol:
			if isKeyword(tp.text) {
				l.keywords.Add(tp.text)
			}
		case *SymbolChoice:
			for _, lit := range tp.Literals() {
				if isKeyword(lit) {
					l.keywords.Add(lit)
				}
			}
		}
	}

	l.fingerprint = l.computeFingerprint()
	return nil
}

func isKeyword(s string) bool {
	return len(s) > 1 && isIdentifier(s)
}

// collect numbers every reachable parselet in depth-first order.
func (l *Language) collect() error {
	l.byName = map[string]Parselet{}
	seen := map[Parselet]bool{}

	var visit func(pl Parselet) error
	visit = func(pl Parselet) error {
		if pl == nil {
			return grammarErrorf(nil, "nil parselet in grammar")
		}
		if seen[pl] {
			return nil
		}
		seen[pl] = true

		c := pl.core()
		if c.lang != nil && c.lang != l {
			return grammarErrorf(pl, "already belongs to language %q", c.lang.Name)
		}
		c.lang = l
		c.id = FirstID + len(l.parselets)
		l.parselets = append(l.parselets, pl)
		if c.name != "" {
			if _, ok := l.byName[c.name]; !ok {
				l.byName[c.name] = pl
			}
		}

		for _, child := range pl.children() {
			if err := visit(child); err != nil {
				return err
			}
		}
		return nil
	}

	return visit(l.start)
}

// resolveSequences fills in the mapping, result kind, and node type of every
// sequence.
func (l *Language) resolveSequences() error {
	var seqs []*Sequence
	for _, pl := range l.parselets {
		if s, ok := pl.(*Sequence); ok {
			seqs = append(seqs, s)
		}
	}

	for _, s := range seqs {
		if len(s.desc.mapping) > len(s.items) {
			return grammarErrorf(s, "descriptor has %d slots for %d children", len(s.desc.mapping), len(s.items))
		}
		s.mapping = make([]Mapping, len(s.items))
		for i := range s.items {
			switch {
			case i < len(s.desc.mapping):
				s.mapping[i] = s.desc.mapping[i]
			case s.desc.explicit:
				s.mapping[i] = Mapping{Kind: MapSkip}
			default:
				s.mapping[i] = Mapping{Kind: MapString}
			}
		}

		var named, arrays, props, strs bool
		for _, m := range s.mapping {
			switch m.Kind {
			case MapNamed, MapInherit:
				named = true
			case MapArray:
				arrays = true
			case MapPropagate:
				props = true
			case MapString:
				strs = true
			}
		}

		switch {
		case s.desc.typeName != "":
			t, ok := l.types[s.desc.typeName]
			if !ok {
				t = NewNodeType(s.desc.typeName)
				l.addType(t)
			}
			s.nodeType = t
			s.result = resultNode
		case named:
			name := s.name
			if name == "" {
				name = fmt.Sprintf("$%d", s.id)
			}
			s.nodeType = &NodeType{Name: name, anonymous: true, index: map[string]int{}}
			s.result = resultNode
		case arrays:
			s.result = resultArray
		case props:
			s.result = resultPropagate
		case strs:
			s.result = resultString
		default:
			s.result = resultNone
		}

		for _, m := range s.mapping {
			if m.Kind == MapNamed {
				s.nodeType.addProp(m.Prop)
			}
		}
	}

	// inherited properties may come through several levels of bags.
	for changed := true; changed; {
		changed = false
		for _, s := range seqs {
			for i, m := range s.mapping {
				if m.Kind != MapInherit {
					continue
				}
				src, ok := s.items[i].(*Sequence)
				if !ok || src.nodeType == nil {
					return grammarErrorf(s, "slot %d inherits from %s, which produces no node", i, describe(s.items[i]))
				}
				for _, p := range src.nodeType.Props {
					if !s.nodeType.Has(p) {
						s.nodeType.addProp(p)
						changed = true
					}
				}
			}
		}
	}

	return nil
}

// nullable returns, for every parselet, whether it can succeed without
// consuming input.
func (l *Language) nullable() map[Parselet]bool {
	null := map[Parselet]bool{}
	for changed := true; changed; {
		changed = false
		for _, pl := range l.parselets {
			if null[pl] {
				continue
			}
			c := pl.core()
			n := c.optional() || c.zeroWidth()
			if !n {
				switch tp := pl.(type) {
				case *Symbol:
					n = tp.kind == symEOF
				case *Sequence:
					n = true
					for _, it := range tp.items {
						if !null[it] {
							n = false
							break
						}
					}
				case *OrderedChoice, *IndexedChoice:
					for _, alt := range pl.children() {
						if null[alt] {
							n = true
							break
						}
					}
				case *Spacing:
					n = null[tp.inner]
				}
			}
			if n {
				null[pl] = true
				changed = true
			}
		}
	}
	return null
}

// leftmost returns the children of pl that can be tried at the position pl
// starts at.
func leftmost(pl Parselet, null map[Parselet]bool) []Parselet {
	switch tp := pl.(type) {
	case *Sequence:
		var out []Parselet
		for _, it := range tp.items {
			out = append(out, it)
			if !null[it] {
				break
			}
		}
		return out
	default:
		return pl.children()
	}
}

// findLeftRecursion flags every parselet that can reach itself without
// consuming input.
func (l *Language) findLeftRecursion() {
	null := l.nullable()
	for _, pl := range l.parselets {
		seen := map[Parselet]bool{}
		stack := append([]Parselet{}, leftmost(pl, null)...)
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top == pl {
				pl.core().leftRecursive = true
				break
			}
			if seen[top] {
				continue
			}
			seen[top] = true
			stack = append(stack, leftmost(top, null)...)
		}
	}

	for _, pl := range l.parselets {
		s, ok := pl.(*Sequence)
		if !ok || !s.core().leftRecursive || s.result != resultNode || len(s.mapping) == 0 {
			continue
		}
		if s.mapping[0].Kind == MapNamed {
			s.chainProp = s.mapping[0].Prop
		}
	}
}

// String returns a description of the language's grammar with one line per
// parselet.
func (l *Language) String() string {
	var sb strings.Builder
	l.Describe(&sb)
	return sb.String()
}

// Describe writes one line per parselet to w: its id, kind, description, and
// options.
func (l *Language) Describe(w io.Writer) {
	for _, pl := range l.parselets {
		c := pl.core()
		line := fmt.Sprintf("%d\t%s\t%s", c.id, KindOf(pl), pl.String())
		if c.opts != 0 {
			line += "\t" + c.opts.String()
		}
		if s, ok := pl.(*Sequence); ok && s.desc.explicit {
			slots := make([]string, len(s.mapping))
			for i, m := range s.mapping {
				slots[i] = m.String()
			}
			line += "\t(" + strings.Join(slots, ",") + ")"
		}
		fmt.Fprintln(w, line)
	}
}

// KindOf names the kind of parselet pl is.
func KindOf(pl Parselet) string {
	switch tp := pl.(type) {
	case *Symbol:
		switch tp.kind {
		case symAnyChar:
			return "AnyChar"
		case symEOF:
			return "EOF"
		}
		return "Symbol"
	case *SymbolChoice:
		return "SymbolChoice"
	case *Sequence:
		return "Sequence"
	case *OrderedChoice:
		return "OrderedChoice"
	case *IndexedChoice:
		return "IndexedChoice"
	case *Spacing:
		if tp.newline {
			return "Newline"
		}
		return "Spacing"
	default:
		return fmt.Sprintf("%T", pl)
	}
}

func (l *Language) computeFingerprint() string {
	h := fnv.New64a()
	l.Describe(h)
	for _, t := range l.typeOrder {
		fmt.Fprintf(h, "%s(%s)\n", t.Name, strings.Join(t.Props, ","))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Fingerprint returns a hash of the grammar's structure. Two builds of the
// same grammar have the same fingerprint.
func (l *Language) Fingerprint() string {
	l.mustInit()
	return l.fingerprint
}

// Parselets returns every parselet of the language in id order.
func (l *Language) Parselets() []Parselet {
	l.mustInit()
	return append([]Parselet{}, l.parselets...)
}

// ParseletByID returns the parselet with the given id, or nil.
func (l *Language) ParseletByID(id int) Parselet {
	l.mustInit()
	idx := id - FirstID
	if idx < 0 || idx >= len(l.parselets) {
		return nil
	}
	return l.parselets[idx]
}

// ParseletByName returns the first parselet with the given name, or nil.
func (l *Language) ParseletByName(name string) Parselet {
	l.mustInit()
	return l.byName[name]
}

// ParseletForType returns the first sequence that produces nodes of type t,
// or nil.
func (l *Language) ParseletForType(t *NodeType) Parselet {
	l.mustInit()
	return l.byType[t]
}

// NodeType returns the named node type, or nil.
func (l *Language) NodeType(name string) *NodeType {
	l.mustInit()
	return l.types[name]
}

// NodeTypes returns every node type of the language in the order they were
// declared or first used.
func (l *Language) NodeTypes() []*NodeType {
	l.mustInit()
	return append([]*NodeType{}, l.typeOrder...)
}

// NewNode creates an empty node of the named type. It panics if the language
// has no such type.
func (l *Language) NewNode(typeName string) *Node {
	t := l.NodeType(typeName)
	if t == nil {
		panic(fmt.Sprintf("language %s has no node type %q", l.Name, typeName))
	}
	return t.New()
}

// Keywords returns the identifier-like literals the grammar matches, sorted.
func (l *Language) Keywords() []string {
	l.mustInit()
	kw := l.keywords.Elements()
	sort.Strings(kw)
	return kw
}

// IsKeyword returns whether word is one of the language's keywords.
func (l *Language) IsKeyword(word string) bool {
	l.mustInit()
	return l.keywords.Has(word)
}

// Parse parses text with the start parselet and returns the parse tree. A
// failed parse returns a *ParseError.
func (l *Language) Parse(text string) (ParseNode, error) {
	return l.ParseWith(NewStringInput(text), ParseOptions{})
}

// ParseReader parses everything read from r.
func (l *Language) ParseReader(r io.Reader, opts ParseOptions) (ParseNode, error) {
	return l.ParseWith(NewInput(r), opts)
}

// ParseWith parses in using opts.
func (l *Language) ParseWith(in *Input, opts ParseOptions) (ParseNode, error) {
	if err := l.Init(); err != nil {
		return nil, err
	}
	start := opts.Start
	if start == nil {
		start = l.start
	}
	if start.Language() != l {
		return nil, fmt.Errorf("start parselet %s is not part of language %s", describe(start), l.Name)
	}

	p := NewParser(l, in, opts)
	pn, err := p.Parse(start)
	if opts.Stats != nil {
		*opts.Stats = p.Stats()
	}
	return pn, err
}

// ParseValue parses text and returns the semantic value of the result.
func (l *Language) ParseValue(text string) (any, error) {
	pn, err := l.Parse(text)
	if err != nil {
		return nil, err
	}
	return pn.Semantic(), nil
}
