package parselet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Dump(t *testing.T) {
	assert := assert.New(t)

	pn := mustParse(plusLanguage(), "a+b")

	expect := "( a+b )\n" +
		"  |---: ( 'a' )\n" +
		"  |       \\---: (TOKEN \"a\")\n" +
		"  |---: ( '+' )\n" +
		"  |       \\---: (TOKEN \"+\")\n" +
		"  \\---: ( 'b' )\n" +
		"          \\---: (TOKEN \"b\")"

	assert.Equal(expect, Dump(pn))
}

func Test_Dump_Values(t *testing.T) {
	assert := assert.New(t)

	pn := mustParse(calcLanguage(), "7")
	out := Dump(pn)

	assert.Contains(out, "=> Number )")
	assert.Contains(out, `(TOKEN "7")`)
}

func Test_TreesEqual(t *testing.T) {
	testCases := []struct {
		name   string
		a      string
		b      string
		expect bool
	}{
		{name: "same text", a: "1 + 2", b: "1 + 2", expect: true},
		{name: "different token", a: "1 + 2", b: "1 + 3", expect: false},
		{name: "different spacing", a: "1 + 2", b: "1+2", expect: false},
		{name: "different shape", a: "1 + 2", b: "1 * 2", expect: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			lang := calcLanguage()

			a := mustParse(lang, tc.a)
			b := mustParse(lang, tc.b)

			assert.Equal(tc.expect, TreesEqual(a, b))
		})
	}
}
