package parselet

import (
	"github.com/sirupsen/logrus"
)

// ParseOptions changes how a parse runs.
type ParseOptions struct {
	// Start is the parselet to match the whole input against. The
	// language's start parselet is used when it is nil.
	Start Parselet

	// PartialValues asks for a best-effort parse tree to be attached to the
	// error when the parse fails.
	PartialValues bool

	// MaxErrors caps how many equally good errors are kept. Zero uses the
	// default of 8.
	MaxErrors int

	// Log receives debug output about the parse. Nothing is logged when it is
	// nil.
	Log logrus.FieldLogger

	// Trace is called before every parselet is tried.
	Trace func(pl Parselet, pos int)

	// OnError is called with every error the parser records.
	OnError func(err *ParseError)

	// Stats, if set, is filled with counters from the parse.
	Stats *Stats
}

// Stats holds counters gathered during a single parse.
type Stats struct {
	// Attempts is the number of times any parselet was tried.
	Attempts int

	// ErrorsRecorded is the number of errors that were candidates for
	// reporting.
	ErrorsRecorded int

	// ErrorsOverridden is the number of recorded errors dropped in favor of
	// a better one.
	ErrorsOverridden int

	// Growths is the number of times a left-recursive match was extended.
	Growths int

	// Furthest is the furthest input index any match reached.
	Furthest int
}

// Parser holds the state of one parse. It is not safe for concurrent use;
// create one per parse.
type Parser struct {
	lang *Language
	in   *Input
	pos  int

	negation      int
	partialValues bool
	maxErrors     int
	errors        []*ParseError

	growing map[growKey]*growEntry

	log     logrus.FieldLogger
	trace   func(Parselet, int)
	onError func(*ParseError)
	stats   Stats
}

type growKey struct {
	pl  Parselet
	pos int
}

type growEntry struct {
	el       Element
	err      *ParseError
	end      int
	recursed bool
}

// NewParser creates a Parser that reads in using the grammar of lang.
func NewParser(lang *Language, in *Input, opts ParseOptions) *Parser {
	p := &Parser{
		lang:          lang,
		in:            in,
		partialValues: opts.PartialValues,
		maxErrors:     opts.MaxErrors,
		growing:       map[growKey]*growEntry{},
		log:           opts.Log,
		trace:         opts.Trace,
		onError:       opts.OnError,
	}
	if p.maxErrors <= 0 {
		p.maxErrors = maxErrorsByDefault
	}
	return p
}

// Index returns the current input position.
func (p *Parser) Index() int {
	return p.pos
}

// Input returns the input the parser reads from.
func (p *Parser) Input() *Input {
	return p.in
}

// Stats returns the counters gathered so far.
func (p *Parser) Stats() Stats {
	return p.stats
}

// Errors returns the best errors recorded so far.
func (p *Parser) Errors() []*ParseError {
	return p.errors
}

// Parse matches the whole input against start. The returned error is always a
// *ParseError.
func (p *Parser) Parse(start Parselet) (ParseNode, error) {
	p.lang.mustInit()
	begin := p.pos

	el, err := p.ParseNext(start)
	if err == nil {
		if p.in.AtEOF(p.pos) {
			root := rootNode(start, el, begin)
			linkSemantics(root)
			return root, nil
		}
		err = p.fail(start, p.pos, p.pos, CodeUnexpectedText, start.String())
		if p.partialValues {
			err.PartialValue = rootNode(start, el, begin)
		}
	}
	if rerr := p.in.Err(); rerr != nil {
		err = &ParseError{Parselet: start, Code: CodeReadError, Args: []any{rerr.Error()}, Start: p.pos, End: p.pos}
	}

	return nil, p.consolidate(start, err)
}

func rootNode(start Parselet, el Element, begin int) ParseNode {
	switch te := el.(type) {
	case nil:
		return &ParentNode{parselet: start, start: begin}
	case ParseNode:
		return te
	default:
		return &LeafNode{parselet: start, start: begin, child: el}
	}
}

// consolidate builds the error returned from a failed top-level parse out of
// the error the start parselet returned and the best errors recorded.
func (p *Parser) consolidate(start Parselet, err *ParseError) *ParseError {
	primary := err
	for _, e := range p.errors {
		if isBetterError(e, primary) {
			primary = e
		}
	}

	out := *primary
	out.Others = nil
	if out.PartialValue == nil && err.PartialValue != nil {
		out.PartialValue = err.PartialValue
		out.Continuation = err.Continuation
	}
	seen := map[string]bool{out.Message(): true}
	for _, e := range p.errors {
		if e == primary || !equallyGood(e, primary) || seen[e.Message()] {
			continue
		}
		seen[e.Message()] = true
		out.Others = append(out.Others, e)
		if len(out.Others)+1 >= p.maxErrors {
			break
		}
	}

	if p.partialValues && out.PartialValue != nil {
		linkSemantics(out.PartialValue)
		end := out.PartialValue.StartIndex() + out.PartialValue.Len()
		if !p.in.AtEOF(end) {
			total := len([]rune(p.in.Text()))
			out.Unparsed = &ErrorNode{Err: &out, token: newToken(p.in, end, total)}
		}
	}

	if p.log != nil {
		p.log.WithFields(logrus.Fields{
			"start":      start.String(),
			"end":        out.End,
			"equal":      len(out.Others),
			"attempts":   p.stats.Attempts,
			"overridden": p.stats.ErrorsOverridden,
		}).Debug("parse failed")
	}
	return &out
}

// ParseNext tries pl at the current position. On success the position is
// after the matched text and the result is the matched element, which is nil
// when pl matched nothing. On failure the position is unchanged.
func (p *Parser) ParseNext(pl Parselet) (Element, *ParseError) {
	c := pl.core()
	start := p.pos
	p.stats.Attempts++
	if p.trace != nil {
		p.trace(pl, start)
	}

	if c.zeroWidth() {
		return p.parseZeroWidth(pl, start)
	}
	return p.parseAt(pl, start)
}

func (p *Parser) parseAt(pl Parselet, start int) (Element, *ParseError) {
	if pl.core().leftRecursive {
		return p.parseGrowing(pl, start)
	}
	return p.parseWrapped(pl, start)
}

func (p *Parser) parseWrapped(pl Parselet, start int) (Element, *ParseError) {
	c := pl.core()

	el, err := pl.parse(p)
	if err != nil {
		p.pos = start
		return nil, err
	}

	if c.accept != nil {
		if msg := c.accept(semanticOf(el)); msg != "" {
			p.pos = start
			if c.optional() {
				return nil, nil
			}
			return nil, p.fail(pl, start, start, CodeRejected, msg)
		}
	}

	if p.pos > p.stats.Furthest {
		p.stats.Furthest = p.pos
	}
	p.in.accept(p.pos)
	return p.wrap(pl, el, start), nil
}

// wrap gives el a parse node of pl's own unless pl is set to skip that or el
// already is one.
func (p *Parser) wrap(pl Parselet, el Element, start int) Element {
	if el == nil || pl.core().opts.Has(Skip) {
		return el
	}
	if pn, ok := el.(ParseNode); ok && pn.Parselet() == pl {
		return pn
	}
	return &LeafNode{parselet: pl, start: start, child: el}
}

// parseZeroWidth matches lookahead and negated parselets. Neither consumes
// input or produces a value.
func (p *Parser) parseZeroWidth(pl Parselet, start int) (Element, *ParseError) {
	negated := pl.core().opts.Has(Negated)
	if negated {
		p.negation++
	}
	_, err := p.parseAt(pl, start)
	if negated {
		p.negation--
	}
	p.pos = start

	if negated {
		if err != nil {
			return nil, nil
		}
		return nil, p.fail(pl, start, start, CodeNotExpecting, pl.String())
	}
	if err != nil {
		if pl.core().optional() {
			return nil, nil
		}
		return nil, err
	}
	return nil, nil
}

// parseGrowing matches a left-recursive parselet by growing a seed. The first
// attempt at a position fails any recursive attempt at the same position; if
// that attempt recursed, it is repeated with the previous result standing in
// for the recursive call until the match stops getting longer.
func (p *Parser) parseGrowing(pl Parselet, start int) (Element, *ParseError) {
	key := growKey{pl: pl, pos: start}
	if m, ok := p.growing[key]; ok {
		if m.err != nil {
			m.recursed = true
			return nil, m.err
		}
		p.pos = m.end
		return m.el, nil
	}

	m := &growEntry{err: &ParseError{Parselet: pl, Code: codeLeftRecursion, Args: []any{pl.String()}, Start: start, End: start}}
	p.growing[key] = m
	defer delete(p.growing, key)

	el, err := p.parseWrapped(pl, start)
	if err != nil || !m.recursed {
		return el, err
	}

	for {
		m.el, m.err, m.end = el, nil, p.pos
		p.pos = start
		p.stats.Growths++

		next, err := p.parseWrapped(pl, start)
		if err != nil || p.pos <= m.end {
			if p.log != nil {
				p.log.WithFields(logrus.Fields{
					"parselet": pl.String(),
					"start":    start,
					"end":      m.end,
				}).Debug("left recursion stopped growing")
			}
			p.pos = m.end
			return m.el, nil
		}
		el = next
	}
}

// fail creates an error and records it as a candidate for reporting.
func (p *Parser) fail(pl Parselet, start, end int, code string, args ...any) *ParseError {
	err := &ParseError{
		Parselet: pl,
		Code:     code,
		Args:     args,
		Start:    start,
		End:      end,
		EOF:      p.in.AtEOF(end),
	}
	p.record(err)
	return err
}

// record keeps err if it is at least as good as the best error so far.
// Errors inside negated matches are not real failures and are never kept.
func (p *Parser) record(err *ParseError) {
	if p.negation > 0 || !err.Parselet.core().reportsErrors() {
		return
	}
	p.stats.ErrorsRecorded++
	if p.onError != nil {
		p.onError(err)
	}

	if len(p.errors) == 0 {
		p.errors = append(p.errors, err)
		return
	}

	best := p.errors[0]
	switch {
	case equallyGood(err, best):
		if len(p.errors) < p.maxErrors {
			p.errors = append(p.errors, err)
		} else {
			p.stats.ErrorsOverridden++
		}
	case isBetterError(err, best):
		p.stats.ErrorsOverridden += len(p.errors)
		if p.log != nil {
			p.log.WithFields(logrus.Fields{
				"start":   err.Start,
				"end":     err.End,
				"dropped": len(p.errors),
			}).Debug("better parse error found")
		}
		p.errors = append(p.errors[:0], err)
	default:
		p.stats.ErrorsOverridden++
	}
}
