package valueyaml

import (
	"strings"
	"testing"

	"github.com/dekarrin/parselet"
	"github.com/dekarrin/parselet/lang/minic"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func Test_Marshal_Program(t *testing.T) {
	assert := assert.New(t)

	v, err := minic.Language().ParseValue(`x = 1; print("hi");`)
	if !assert.NoError(err) {
		return
	}

	data, err := Marshal(v, 2)
	if !assert.NoError(err) {
		return
	}
	assert.True(strings.HasPrefix(string(data), "type: Program\n"), "got:\n%s", data)

	var actual map[string]any
	if !assert.NoError(yaml.Unmarshal(data, &actual)) {
		return
	}
	expect := map[string]any{
		"type": "Program",
		"body": []any{
			map[string]any{
				"type":   "Assign",
				"target": "x",
				"value":  map[string]any{"type": "Number", "value": "1"},
			},
			map[string]any{
				"type": "ExprStmt",
				"expr": map[string]any{
					"type": "Call",
					"fn":   "print",
					"args": []any{map[string]any{"type": "String", "value": "hi"}},
				},
			},
		},
	}
	assert.Equal(expect, actual)
}

func Test_Node_Scalars(t *testing.T) {
	testCases := []struct {
		name   string
		value  any
		expect any
	}{
		{name: "nil", value: nil, expect: nil},
		{name: "numeric string stays a string", value: "10", expect: "10"},
		{name: "bool", value: true, expect: true},
		{name: "int", value: -3, expect: -3},
		{name: "long", value: int64(1) << 40, expect: 1 << 40},
		{name: "double", value: 2.5, expect: 2.5},
		{name: "char", value: 'q', expect: "q"},
		{name: "list", value: parselet.NewNodeList("a", 1), expect: []any{"a", 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			data, err := Marshal(tc.value, 4)
			if !assert.NoError(err) {
				return
			}
			var actual any
			assert.NoError(yaml.Unmarshal(data, &actual))
			assert.Equal(tc.expect, actual)
		})
	}
}
