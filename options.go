package parselet

import (
	"fmt"
	"strings"
)

// Options is a bit set of flags that change how a parselet matches input and
// generates output.
type Options uint32

const (
	// Optional makes a failed match succeed with no value and no input
	// consumed.
	Optional Options = 1 << iota

	// Repeat matches the parselet one or more times (zero or more when also
	// Optional) and produces an array-shaped value.
	Repeat

	// Lookahead matches the parselet but does not consume the input it
	// matched.
	Lookahead

	// Skip keeps the result from being wrapped in its own parse node.
	Skip

	// NoError keeps failures of the parselet out of the parser's error list.
	NoError

	// Negated succeeds, consuming nothing, exactly when the parselet would
	// otherwise fail.
	Negated

	// Report makes a failing sequence or choice raise an error naming itself
	// instead of passing on the error of the child that failed.
	Report
)

// Has returns whether all flags in o2 are set in o.
func (o Options) Has(o2 Options) bool {
	return o&o2 == o2
}

func (o Options) String() string {
	var names []string
	if o.Has(Optional) {
		names = append(names, "OPTIONAL")
	}
	if o.Has(Repeat) {
		names = append(names, "REPEAT")
	}
	if o.Has(Lookahead) {
		names = append(names, "LOOKAHEAD")
	}
	if o.Has(Skip) {
		names = append(names, "SKIP")
	}
	if o.Has(NoError) {
		names = append(names, "NOERROR")
	}
	if o.Has(Negated) {
		names = append(names, "NEGATED")
	}
	if o.Has(Report) {
		names = append(names, "REPORT")
	}
	return strings.Join(names, "|")
}

// MappingKind says how one child's result feeds the value its parent sequence
// produces.
type MappingKind int

const (
	// MapSkip drops the child's value. The child's text is still kept in the
	// parse node.
	MapSkip MappingKind = iota

	// MapString contributes the child's text to a string result.
	MapString

	// MapPropagate makes the child's value the value of the parent.
	MapPropagate

	// MapArray adds the child's value (or each element of it, for lists) to a
	// list result.
	MapArray

	// MapNamed stores the child's value in a named property of the node the
	// parent produces.
	MapNamed

	// MapInherit copies the properties of the child's node into the parent's
	// node.
	MapInherit
)

func (mk MappingKind) String() string {
	switch mk {
	case MapSkip:
		return "SKIP"
	case MapString:
		return "STRING"
	case MapPropagate:
		return "PROPAGATE"
	case MapArray:
		return "ARRAY"
	case MapNamed:
		return "NAMED_SLOT"
	case MapInherit:
		return "INHERIT"
	default:
		return fmt.Sprintf("MappingKind(%d)", int(mk))
	}
}

// Mapping is the parameter mapping for a single child slot.
type Mapping struct {
	Kind MappingKind

	// Prop is the property name for MapNamed.
	Prop string
}

func (m Mapping) String() string {
	switch m.Kind {
	case MapSkip:
		return ""
	case MapString:
		return "''"
	case MapPropagate:
		return "."
	case MapArray:
		return "[]"
	case MapInherit:
		return "^"
	default:
		return m.Prop
	}
}

// descriptor is the parsed form of the name string given to nested parselet
// constructors.
//
// Accepted forms:
//
//	"<ruleName>"             a named rule with the default mapping
//	"ruleName"               same as above
//	"TypeName(a,,.,[],'',^)" produces nodes of TypeName with explicit slots
//	"(a,,.)"                 an untyped rule with explicit slots
type descriptor struct {
	name     string
	typeName string
	mapping  []Mapping
	explicit bool
}

func parseDescriptor(desc string) (descriptor, error) {
	var d descriptor

	desc = strings.TrimSpace(desc)
	if strings.HasPrefix(desc, "<") && strings.HasSuffix(desc, ">") {
		d.name = desc[1 : len(desc)-1]
		return d, nil
	}

	open := strings.IndexRune(desc, '(')
	if open < 0 || !strings.HasSuffix(desc, ")") {
		d.name = desc
		return d, nil
	}

	d.typeName = strings.TrimSpace(desc[:open])
	d.name = d.typeName
	d.explicit = true

	slots := desc[open+1 : len(desc)-1]
	if strings.TrimSpace(slots) == "" {
		return d, nil
	}
	for _, slot := range strings.Split(slots, ",") {
		slot = strings.TrimSpace(slot)
		var m Mapping
		switch slot {
		case "":
			m.Kind = MapSkip
		case "''":
			m.Kind = MapString
		case ".":
			m.Kind = MapPropagate
		case "[]":
			m.Kind = MapArray
		case "^":
			m.Kind = MapInherit
		default:
			if !isIdentifier(slot) {
				return d, fmt.Errorf("slot %q is not a property name or mapping symbol", slot)
			}
			m.Kind = MapNamed
			m.Prop = slot
		}
		d.mapping = append(d.mapping, m)
	}

	return d, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		if ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
			continue
		}
		if i > 0 && ch >= '0' && ch <= '9' {
			continue
		}
		return false
	}
	return true
}
