package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Text_LineCol(t *testing.T) {
	testCases := []struct {
		name       string
		content    string
		pos        int
		expectLine int
		expectCol  int
	}{
		{name: "empty text", content: "", pos: 0, expectLine: 1, expectCol: 1},
		{name: "first char", content: "abc\ndef", pos: 0, expectLine: 1, expectCol: 1},
		{name: "on newline", content: "abc\ndef", pos: 3, expectLine: 1, expectCol: 4},
		{name: "second line", content: "abc\ndef", pos: 5, expectLine: 2, expectCol: 2},
		{name: "past end", content: "abc\ndef", pos: 100, expectLine: 2, expectCol: 4},
		{name: "negative", content: "abc", pos: -4, expectLine: 1, expectCol: 1},
		{name: "multibyte chars count once", content: "héllo\nwörld", pos: 8, expectLine: 2, expectCol: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			txt := New("test", tc.content)
			line, col := txt.LineCol(tc.pos)

			assert.Equal(tc.expectLine, line)
			assert.Equal(tc.expectCol, col)
			if tc.pos >= 0 && tc.pos <= txt.Len() {
				assert.Equal(tc.pos, txt.Offset(line, col))
			}
		})
	}
}

func Test_Text_Cursor(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		pos     int
		expect  string
	}{
		{
			name:    "start of single line",
			content: "a-b",
			pos:     0,
			expect:  "a-b\n^",
		},
		{
			name:    "middle of second line",
			content: "x = 1;\ny = ;\n",
			pos:     11,
			expect:  "y = ;\n    ^",
		},
		{
			name:    "wide characters take two columns",
			content: "名前=1",
			pos:     2,
			expect:  "名前=1\n    ^",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			assert.Equal(tc.expect, New("t", tc.content).Cursor(tc.pos))
		})
	}
}
