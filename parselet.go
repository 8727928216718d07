// Package parselet is an incremental parsing engine built from small
// composable matchers called parselets. A grammar is a graph of parselets
// wrapped in a Language. Parsing text with it gives a tree of parse nodes that
// keeps every character of the input, with a semantic value (made of Nodes,
// NodeLists, and scalars) attached to the parse nodes that produce one.
//
// The same grammar runs in reverse: given a semantic value, a Language can
// generate a parse tree for it, and formatting that tree gives source text
// that parses back to an equal value.
package parselet

import (
	"fmt"
)

// Parselet is a matcher in a grammar. Parselets are built with the New*
// functions, linked into a graph, and then owned by the Language created from
// the graph. After the Language is initialized, parselets are read-only and
// may be shared by concurrent parses.
type Parselet interface {
	// Name returns the rule name of the parselet, or "" if it has none.
	Name() string

	// ID returns the parselet's id within its Language. It is 0 until the
	// Language is initialized.
	ID() int

	// Options returns the option flags the parselet was created with.
	Options() Options

	// Language returns the Language the parselet belongs to.
	Language() *Language

	// String describes the parselet for error messages.
	String() string

	parse(p *Parser) (Element, *ParseError)
	generate(ctx *GenerateContext, v any) (Element, *GenerateError)
	children() []Parselet
	core() *parseletCore
}

// AcceptFunc checks the value a parselet matched. A non-empty return rejects
// the match and is used as the error message.
type AcceptFunc func(v any) string

type parseletCore struct {
	name   string
	id     int
	opts   Options
	lang   *Language
	accept AcceptFunc

	// set by Language.Init.
	leftRecursive bool
	once          produceSet
	produces      produceSet
}

func (c *parseletCore) Name() string           { return c.name }
func (c *parseletCore) ID() int                { return c.id }
func (c *parseletCore) Options() Options       { return c.opts }
func (c *parseletCore) Language() *Language    { return c.lang }
func (c *parseletCore) core() *parseletCore    { return c }
func (c *parseletCore) reportsErrors() bool    { return !c.opts.Has(NoError) }
func (c *parseletCore) reportsOwn() bool       { return c.opts.Has(Report) }
func (c *parseletCore) optional() bool         { return c.opts.Has(Optional) }
func (c *parseletCore) repeats() bool          { return c.opts.Has(Repeat) }
func (c *parseletCore) zeroWidth() bool        { return c.opts&(Lookahead|Negated) != 0 }
func (c *parseletCore) setAccept(f AcceptFunc) { c.accept = f }

// SetAccept installs a check that runs on the value of every successful match
// of pl. It must be called before the Language is initialized.
func SetAccept(pl Parselet, f AcceptFunc) {
	c := pl.core()
	if c.lang != nil && c.lang.initialized() {
		panic(fmt.Sprintf("SetAccept on %s after language init", describe(pl)))
	}
	c.setAccept(f)
}

// decorate adds option markers to a parselet description.
func decorate(desc string, opts Options) string {
	if opts.Has(Negated) {
		desc = "!" + desc
	}
	if opts.Has(Lookahead) {
		desc = "&" + desc
	}
	switch {
	case opts.Has(Optional | Repeat):
		desc += "*"
	case opts.Has(Repeat):
		desc += "+"
	case opts.Has(Optional):
		desc += "?"
	}
	return desc
}
