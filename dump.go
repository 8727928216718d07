package parselet

import (
	"fmt"
	"strings"
)

const (
	treeLevelEmpty               = "        "
	treeLevelOngoing             = "  |     "
	treeLevelPrefix              = "  |%s: "
	treeLevelPrefixLast          = `  \%s: `
	treeLevelPrefixNamePadChar   = '-'
	treeLevelPrefixNamePadAmount = 3
)

func makeTreeLevelPrefix(msg string) string {
	for len([]rune(msg)) < treeLevelPrefixNamePadAmount {
		msg = string(treeLevelPrefixNamePadChar) + msg
	}
	return fmt.Sprintf(treeLevelPrefix, msg)
}

func makeTreeLevelPrefixLast(msg string) string {
	for len([]rune(msg)) < treeLevelPrefixNamePadAmount {
		msg = string(treeLevelPrefixNamePadChar) + msg
	}
	return fmt.Sprintf(treeLevelPrefixLast, msg)
}

// Dump returns a prettified representation of the parse tree under e suitable
// for line-by-line comparison of tree structure. Two trees with the same
// structure and text give identical output.
func Dump(e Element) string {
	return leveledStr(e, "", "")
}

func dumpLabel(e Element) string {
	switch te := e.(type) {
	case nil:
		return "(NULL)"
	case StringToken:
		return fmt.Sprintf("(TOKEN %q)", te.String())
	case Literal:
		return fmt.Sprintf("(LIT %q)", string(te))
	case *SpacingNode:
		return fmt.Sprintf("(SPACE %q)", te.String())
	case *NewlineNode:
		return fmt.Sprintf("(NEWLINE %q)", te.String())
	case *ErrorNode:
		return fmt.Sprintf("(ERROR %q)", te.String())
	case ParseNode:
		label := "?"
		if pl := te.Parselet(); pl != nil {
			label = pl.String()
		}
		switch v := te.Semantic().(type) {
		case *Node:
			return fmt.Sprintf("( %s => %s )", label, v.typ.Name)
		case *NodeList:
			return fmt.Sprintf("( %s => [%d] )", label, v.Len())
		}
		return fmt.Sprintf("( %s )", label)
	default:
		return fmt.Sprintf("(%T)", e)
	}
}

func leveledStr(e Element, firstPrefix, contPrefix string) string {
	var sb strings.Builder

	sb.WriteString(firstPrefix)
	sb.WriteString(dumpLabel(e))

	var children []Element
	switch te := e.(type) {
	case *LeafNode, *ParentNode:
		children = te.(ParseNode).Children()
	}

	for i := range children {
		sb.WriteRune('\n')
		var leveledFirstPrefix string
		var leveledContPrefix string
		if i+1 < len(children) {
			leveledFirstPrefix = contPrefix + makeTreeLevelPrefix("")
			leveledContPrefix = contPrefix + treeLevelOngoing
		} else {
			leveledFirstPrefix = contPrefix + makeTreeLevelPrefixLast("")
			leveledContPrefix = contPrefix + treeLevelEmpty
		}
		sb.WriteString(leveledStr(children[i], leveledFirstPrefix, leveledContPrefix))
	}

	return sb.String()
}

// TreesEqual returns whether two parse trees have the same structure, made by
// the same parselets, with the same text.
func TreesEqual(a, b Element) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if dumpLabel(a) != dumpLabel(b) {
		return false
	}
	pa, aok := a.(ParseNode)
	pb, bok := b.(ParseNode)
	if aok != bok {
		return false
	}
	if !aok {
		return true
	}
	ca, cb := pa.Children(), pb.Children()
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if !TreesEqual(ca[i], cb[i]) {
			return false
		}
	}
	return true
}
