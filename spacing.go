package parselet

// Spacing matches whitespace, comments, or whatever else its inner parselet
// matches between tokens. When generating, it produces a formatting node whose
// text is decided when the tree is formatted.
type Spacing struct {
	parseletCore
	inner   Parselet
	newline bool
}

// NewSpacing creates a Spacing that parses with inner and generates a
// SpacingNode.
func NewSpacing(name string, opts Options, inner Parselet) *Spacing {
	return &Spacing{parseletCore: parseletCore{name: name, opts: opts}, inner: inner}
}

// NewNewline creates a Spacing that parses with inner and generates a
// NewlineNode.
func NewNewline(name string, opts Options, inner Parselet) *Spacing {
	return &Spacing{parseletCore: parseletCore{name: name, opts: opts}, inner: inner, newline: true}
}

// Inner returns the parselet that matches the spacing text.
func (s *Spacing) Inner() Parselet { return s.inner }

// IsNewline returns whether the spacing generates line breaks.
func (s *Spacing) IsNewline() bool { return s.newline }

func (s *Spacing) children() []Parselet { return []Parselet{s.inner} }

func (s *Spacing) String() string {
	if s.name != "" {
		return decorate(s.name, s.opts)
	}
	if s.newline {
		return decorate("<newline>", s.opts)
	}
	return decorate("<spacing>", s.opts)
}

func (s *Spacing) parse(p *Parser) (Element, *ParseError) {
	el, err := p.ParseNext(s.inner)
	if err != nil {
		if s.optional() {
			return nil, nil
		}
		return nil, err
	}
	return el, nil
}

func (s *Spacing) generate(ctx *GenerateContext, v any) (Element, *GenerateError) {
	if s.newline {
		return &NewlineNode{parselet: s}, nil
	}
	return &SpacingNode{parselet: s}, nil
}
