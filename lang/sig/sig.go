// Package sig parses the generic signatures the JVM stores for fields,
// methods, and classes, such as
//
//	Ljava/util/Map<Ljava/lang/String;+Ljava/lang/Number;>;
//	<T:Ljava/lang/Object;>(TT;[I)Ljava/util/List<TT;>;^Ljava/io/IOException;
//
// It is registered under the extension "sig".
package sig

import (
	"github.com/dekarrin/parselet"
)

// Extension is the file extension for files of signatures.
const Extension = "sig"

var lang = build()

func init() {
	parselet.Register(lang)
}

// Language returns the signature grammar.
func Language() *parselet.Language {
	return lang
}

func sym(lit string) parselet.Parselet {
	return parselet.NewSymbol("", 0, lit)
}

func build() *parselet.Language {
	ident := parselet.NewCharClass("ident", parselet.Repeat, ".;[/<>:").Exclude()
	path := parselet.NewSequence("path", 0,
		ident,
		parselet.NewSequence("", parselet.Optional|parselet.Repeat, sym("/"), ident),
	)

	typeSig := parselet.NewOrderedChoice("type", parselet.Skip)

	base := parselet.NewSequence("Base(code)", 0, parselet.NewCharClass("", 0, "BCDFIJSZ"))
	void := parselet.NewSequence("Void()", 0, sym("V"))

	unbounded := parselet.NewSequence("Unbounded()", 0, sym("*"))
	wildcard := parselet.NewSequence("Wildcard(kind,bound)", 0, parselet.NewSymbolChoice("", 0, "+", "-"), typeSig)
	typeArg := parselet.NewOrderedChoice("typeArg", parselet.Skip, unbounded, wildcard, typeSig)
	typeArgs := parselet.NewSequence("(,[],)", parselet.Optional,
		sym("<"),
		parselet.NewSequence("([])", parselet.Repeat, typeArg),
		sym(">"),
	)

	inner := parselet.NewSequence("Inner(,name,args)", parselet.Optional|parselet.Repeat, sym("."), ident, typeArgs)
	class := parselet.NewSequence("Class(,name,args,inner,)", 0, sym("L"), path, typeArgs, inner, sym(";"))
	array := parselet.NewSequence("Array(,elem)", 0, sym("["), typeSig)
	typeVar := parselet.NewSequence("TypeVar(,name,)", 0, sym("T"), ident, sym(";"))
	typeSig.Add(base, class, array, typeVar)

	fieldSig := parselet.NewOrderedChoice("fieldType", parselet.Skip, class, array, typeVar)
	classBound := parselet.NewSequence("(.)", parselet.Optional, fieldSig)
	ifaceBounds := parselet.NewSequence("(,[])", parselet.Optional|parselet.Repeat, sym(":"), fieldSig)
	typeParam := parselet.NewSequence("TypeParam(name,,bound,interfaces)", 0, ident, sym(":"), classBound, ifaceBounds)
	typeParams := parselet.NewSequence("(,[],)", parselet.Optional,
		sym("<"),
		parselet.NewSequence("([])", parselet.Repeat, typeParam),
		sym(">"),
	)

	params := parselet.NewSequence("([])", parselet.Optional|parselet.Repeat, typeSig)
	ret := parselet.NewOrderedChoice("returnType", parselet.Skip, typeSig, void)
	throws := parselet.NewSequence("(,[])", parselet.Optional|parselet.Repeat,
		sym("^"),
		parselet.NewOrderedChoice("", parselet.Skip, class, typeVar),
	)
	method := parselet.NewSequence("Method(typeParams,,params,,ret,throws)", 0,
		typeParams, sym("("), params, sym(")"), ret, throws)

	field := parselet.NewSequence("(.,)", 0, typeSig, parselet.NewEOF(""))
	classSig := parselet.NewSequence("ClassSig(typeParams,super,interfaces)", 0,
		typeParams, class, parselet.NewSequence("([])", parselet.Optional|parselet.Repeat, class))

	start := parselet.NewOrderedChoice("signature", parselet.Skip, method, field, classSig)
	return parselet.NewLanguage("JVM signature", Extension, start)
}
