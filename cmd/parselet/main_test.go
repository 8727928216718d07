package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

// runCLI runs the root command against fs with the given stdin and gives
// what was written to the output and error streams.
func runCLI(fs afero.Fs, stdin string, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	a := &app{
		fs:  fs,
		in:  strings.NewReader(stdin),
		out: &out,
		err: &errOut,
	}

	cmd := newRootCmd(a)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func memFS(files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(fs, name, []byte(content), 0644); err != nil {
			panic(err)
		}
	}
	return fs
}

func Test_ParseCmd(t *testing.T) {
	testCases := []struct {
		name         string
		files        map[string]string
		stdin        string
		args         []string
		expectOut    []string
		expectErrOut []string
		expectErr    error
		expectAnyErr bool
	}{
		{
			name:      "file parses",
			files:     map[string]string{"a.mc": "x = 1;\n"},
			args:      []string{"parse", "a.mc"},
			expectOut: []string{"a.mc: ok\n"},
		},
		{
			name:         "syntax error is reported",
			files:        map[string]string{"bad.mc": "x = ;\n"},
			args:         []string{"parse", "bad.mc"},
			expectErrOut: []string{"x = ;\n", "    ^", "bad.mc:1:5: syntax error"},
			expectErr:    errSyntax,
		},
		{
			name:         "one bad file among good ones",
			files:        map[string]string{"a.mc": "x = 1;", "bad.mc": "if = 1;"},
			args:         []string{"parse", "a.mc", "bad.mc"},
			expectOut:    []string{"a.mc: ok\n"},
			expectErrOut: []string{"bad.mc:1:"},
			expectErr:    errSyntax,
		},
		{
			name:      "stdin with lang",
			stdin:     "f(a);",
			args:      []string{"parse", "--lang", "mc", "-"},
			expectOut: []string{"-: ok\n"},
		},
		{
			name:         "stdin without lang",
			stdin:        "f(a);",
			args:         []string{"parse", "-"},
			expectAnyErr: true,
		},
		{
			name:         "unknown extension",
			files:        map[string]string{"a.txt": "hello"},
			args:         []string{"parse", "a.txt"},
			expectAnyErr: true,
		},
		{
			name:         "missing file",
			args:         []string{"parse", "nope.mc"},
			expectAnyErr: true,
		},
		{
			name:      "stats",
			files:     map[string]string{"a.mc": "x = 1;"},
			args:      []string{"parse", "--stats", "a.mc"},
			expectOut: []string{"a.mc: ok\n", "Parselets tried", "Characters"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			out, errOut, err := runCLI(memFS(tc.files), tc.stdin, tc.args...)

			switch {
			case tc.expectErr != nil:
				assert.ErrorIs(err, tc.expectErr)
			case tc.expectAnyErr:
				assert.Error(err)
			default:
				assert.NoError(err)
			}
			for _, e := range tc.expectOut {
				assert.Contains(out, e)
			}
			for _, e := range tc.expectErrOut {
				assert.Contains(errOut, e)
			}
		})
	}
}

func Test_FmtCmd(t *testing.T) {
	testCases := []struct {
		name   string
		files  map[string]string
		args   []string
		expect string
	}{
		{
			name:   "default indent",
			files:  map[string]string{"a.mc": "if(a<b){x=1;}"},
			args:   []string{"fmt", "a.mc"},
			expect: "if (a < b) {\n    x = 1;\n}\n",
		},
		{
			name:   "indent flag",
			files:  map[string]string{"a.mc": "while(x){x=x-1;}"},
			args:   []string{"--indent", "\t", "fmt", "a.mc"},
			expect: "while (x) {\n\tx = x - 1;\n}\n",
		},
		{
			name: "indent from config file",
			files: map[string]string{
				"a.mc":          "while(x){x=x-1;}",
				"parselet.toml": "indent = \"  \"\n",
			},
			args:   []string{"fmt", "a.mc"},
			expect: "while (x) {\n  x = x - 1;\n}\n",
		},
		{
			name: "flag beats config file",
			files: map[string]string{
				"a.mc":     "while(x){x=x-1;}",
				"cfg.toml": "indent = \"  \"\n",
			},
			args:   []string{"-c", "cfg.toml", "--indent", "\t", "fmt", "a.mc"},
			expect: "while (x) {\n\tx = x - 1;\n}\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			out, _, err := runCLI(memFS(tc.files), "", tc.args...)
			assert.NoError(err)
			assert.Equal(tc.expect, out)
		})
	}
}

func Test_FmtCmd_Write(t *testing.T) {
	assert := assert.New(t)
	fs := memFS(map[string]string{"a.mc": "x=1;y=f( 2 );"})

	out, _, err := runCLI(fs, "", "fmt", "-w", "a.mc")
	assert.NoError(err)
	assert.Empty(out)

	data, err := afero.ReadFile(fs, "a.mc")
	assert.NoError(err)
	assert.Equal("x = 1;\ny = f(2);\n", string(data))
}

func Test_FmtCmd_SyntaxError(t *testing.T) {
	assert := assert.New(t)
	fs := memFS(map[string]string{"a.mc": "x = 1"})

	_, errOut, err := runCLI(fs, "", "fmt", "-w", "a.mc")
	assert.ErrorIs(err, errSyntax)
	assert.Contains(errOut, "syntax error")

	data, _ := afero.ReadFile(fs, "a.mc")
	assert.Equal("x = 1", string(data))
}

func Test_DumpCmd(t *testing.T) {
	testCases := []struct {
		name      string
		args      []string
		expect    []string
		expectErr bool
	}{
		{
			name:   "value",
			args:   []string{"dump", "a.mc"},
			expect: []string{`Program{body=[Assign{target="x", value=Number{value="1"}}]}` + "\n"},
		},
		{
			name:   "yaml",
			args:   []string{"dump", "--yaml", "a.mc"},
			expect: []string{"type: Program\n", "target: x\n"},
		},
		{
			name:   "tree",
			args:   []string{"dump", "--tree", "a.mc"},
			expect: []string{"Assign"},
		},
		{
			name:      "yaml and tree together",
			args:      []string{"dump", "--yaml", "--tree", "a.mc"},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			out, _, err := runCLI(memFS(map[string]string{"a.mc": "x = 1;"}), "", tc.args...)
			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			for _, e := range tc.expect {
				assert.Contains(out, e)
			}
		})
	}
}

func Test_DumpCmd_Partial(t *testing.T) {
	assert := assert.New(t)
	fs := memFS(map[string]string{"a.mc": "x = 1; y = ;"})

	out, errOut, err := runCLI(fs, "", "--partial", "dump", "a.mc")
	assert.ErrorIs(err, errSyntax)
	assert.Contains(errOut, "syntax error")
	assert.Contains(out, `target="x"`)
}

func Test_GrammarCmd(t *testing.T) {
	assert := assert.New(t)

	out, _, err := runCLI(afero.NewMemMapFs(), "", "--wrap", "200", "grammar", "mc")
	assert.NoError(err)
	assert.Contains(out, "minic (.mc), fingerprint ")
	assert.Contains(out, "IndexedChoice")

	out, _, err = runCLI(afero.NewMemMapFs(), "", "--wrap", "200", "grammar", "--types", ".mc")
	assert.NoError(err)
	assert.Contains(out, "Assign")
	assert.Contains(out, "target, value")

	_, _, err = runCLI(afero.NewMemMapFs(), "", "grammar", "nope")
	assert.Error(err)
}

func Test_LanguagesCmd(t *testing.T) {
	assert := assert.New(t)

	out, _, err := runCLI(afero.NewMemMapFs(), "", "languages")
	assert.NoError(err)
	assert.Contains(out, ".mc")
	assert.Contains(out, "minic")
	assert.Contains(out, ".sig")
	assert.Less(strings.Index(out, ".mc"), strings.Index(out, ".sig"))
}

func Test_CacheCmd(t *testing.T) {
	assert := assert.New(t)
	fs := memFS(map[string]string{
		"a.mc":  "x  =  1;",
		"b.sig": "(I)V",
	})
	run := func(args ...string) (string, string, error) {
		return runCLI(fs, "", append([]string{"--cache", "fs:/cache", "--wrap", "200"}, args...)...)
	}

	out, _, err := run("cache", "ls")
	assert.NoError(err)
	assert.Contains(out, "is empty")

	out, _, err = run("--compress", "cache", "save", "a.mc")
	assert.NoError(err)
	assert.Contains(out, "a.mc: cached parse")

	out, _, err = run("cache", "save", "--model", "b.sig")
	assert.NoError(err)
	assert.Contains(out, "b.sig: cached model")

	out, _, err = run("cache", "ls")
	assert.NoError(err)
	assert.Contains(out, "a.mc")
	assert.Contains(out, "b.sig")
	assert.Contains(out, "parse")
	assert.Contains(out, "model")
	assert.Contains(out, "yes")

	// a cached parse tree gives back the exact text.
	out, _, err = run("cache", "load", "a.mc")
	assert.NoError(err)
	assert.Equal("x  =  1;", out)

	out, _, err = run("cache", "load", "--model", "b.sig")
	assert.NoError(err)
	assert.NotEmpty(strings.TrimSpace(out))

	// once the file changes, the entry is stale and gets dropped.
	assert.NoError(afero.WriteFile(fs, "a.mc", []byte("x = 2;"), 0644))
	_, _, err = run("cache", "load", "a.mc")
	if assert.Error(err) {
		assert.Contains(err.Error(), "out of date")
	}
	_, _, err = run("cache", "load", "a.mc")
	if assert.Error(err) {
		assert.Contains(err.Error(), "not in cache")
	}

	out, _, err = run("cache", "rm", "b.sig")
	assert.NoError(err)
	assert.Contains(out, "b.sig: removed")

	out, _, err = run("cache", "ls")
	assert.NoError(err)
	assert.Contains(out, "is empty")
}

func Test_CacheCmd_SyntaxError(t *testing.T) {
	assert := assert.New(t)
	fs := memFS(map[string]string{"bad.mc": "x ="})

	_, _, err := runCLI(fs, "", "--cache", "fs:/cache", "cache", "save", "bad.mc")
	assert.ErrorIs(err, errSyntax)

	out, _, err := runCLI(fs, "", "--cache", "fs:/cache", "cache", "ls")
	assert.NoError(err)
	assert.Contains(out, "is empty")
}

func Test_ReplCmd(t *testing.T) {
	assert := assert.New(t)

	out, _, err := runCLI(afero.NewMemMapFs(), "x = 1;\n:quit\n", "repl", "--mode", "print", "mc")
	assert.NoError(err)
	assert.Contains(out, "parselet REPL for minic (.mc)")
	assert.Contains(out, "x = 1;\n")
	assert.Contains(out, "Goodbye\n")

	_, _, err = runCLI(afero.NewMemMapFs(), "", "repl", "--mode", "loud", "mc")
	assert.Error(err)
}

func Test_BadConfig(t *testing.T) {
	testCases := []struct {
		name  string
		files map[string]string
		args  []string
	}{
		{name: "unknown key", files: map[string]string{"parselet.toml": "colour = true\n"}},
		{name: "bad max errors", args: []string{"--max-errors", "1000"}},
		{name: "bad cache", args: []string{"--cache", "redis"}},
		{name: "bad log level", args: []string{"--log-level", "shouty"}},
		{name: "missing named config", args: []string{"-c", "nope.toml"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			files := map[string]string{"a.mc": "x = 1;"}
			for k, v := range tc.files {
				files[k] = v
			}

			_, _, err := runCLI(memFS(files), "", append(tc.args, "parse", "a.mc")...)
			assert.Error(err)
		})
	}
}
