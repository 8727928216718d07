package input

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_DirectReader_ReadLine(t *testing.T) {
	testCases := []struct {
		name       string
		input      string
		allowBlank bool
		expect     []string
	}{
		{
			name:   "skips blank lines",
			input:  "x = 1;\n\n   \ny = 2;\n",
			expect: []string{"x = 1;", "y = 2;"},
		},
		{
			name:       "blank lines allowed",
			input:      "a\n\nb\n",
			allowBlank: true,
			expect:     []string{"a", "", "b"},
		},
		{
			name:   "keeps indentation",
			input:  "{\n    x = 1;  \r\n}",
			expect: []string{"{", "    x = 1;", "}"},
		},
		{
			name:   "empty input",
			input:  "",
			expect: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			r := NewDirectReader(strings.NewReader(tc.input), nil)
			r.AllowBlank(tc.allowBlank)
			defer r.Close()

			var actual []string
			for {
				line, err := r.ReadLine()
				if err == io.EOF {
					break
				}
				if !assert.NoError(err) {
					return
				}
				actual = append(actual, line)
			}
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_DirectReader_Prompt(t *testing.T) {
	assert := assert.New(t)

	var out bytes.Buffer
	r := NewDirectReader(strings.NewReader("a\nb\n"), &out)
	r.SetPrompt("> ")

	_, err := r.ReadLine()
	assert.NoError(err)
	r.SetPrompt("... ")
	_, err = r.ReadLine()
	assert.NoError(err)

	assert.Equal("> ... ", out.String())
}
