// Package repl contains an interactive session that parses source typed at a
// prompt and shows what it parsed to.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dekarrin/parselet"
	"github.com/dekarrin/parselet/internal/input"
	"github.com/dekarrin/parselet/internal/source"
	"github.com/dekarrin/parselet/internal/valueyaml"
	"github.com/dekarrin/rosed"
)

const (
	promptMain     = "> "
	promptContinue = "... "
)

// Mode is what a Session shows for input that parses.
type Mode string

const (
	// ModeValue shows the semantic value.
	ModeValue Mode = "value"

	// ModePrint shows the value printed back as source.
	ModePrint Mode = "print"

	// ModeTree shows the parse tree.
	ModeTree Mode = "tree"

	// ModeYAML shows the semantic value as YAML.
	ModeYAML Mode = "yaml"
)

// ParseMode parses the name of a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case ModeValue, ModePrint, ModeTree, ModeYAML:
		return m, nil
	default:
		return "", fmt.Errorf("mode not one of 'value', 'print', 'tree', or 'yaml': %q", s)
	}
}

// Options changes how a Session behaves.
type Options struct {
	// Width is the width that messages are wrapped to. Defaults to 80.
	Width int

	// Indent is used when printing values back as source. The language's
	// own indent is used if it is empty.
	Indent string

	// Mode is what is shown for each parsed input. Defaults to ModeValue.
	Mode Mode

	// ForceDirect makes the session read its input directly instead of
	// through readline even when attached to a terminal.
	ForceDirect bool

	// HistoryFile is where readline keeps input history.
	HistoryFile string

	// Parse is passed to every parse.
	Parse parselet.ParseOptions
}

// Session reads source from an input stream, parses it with one language,
// and writes the results to an output stream. Input that runs out before it
// is complete is continued on the next line.
type Session struct {
	lang    *parselet.Language
	in      input.Reader
	out     *bufio.Writer
	opts    Options
	direct  bool
	running bool
	pending strings.Builder
}

// New creates a new Session ready to operate on the given input and output
// streams. If nil is given for the input stream, stdin is used. If nil is
// given for the output stream, stdout is used. Readline is used only when both
// are the process's own.
func New(lang *parselet.Language, inputStream io.Reader, outputStream io.Writer, opts Options) (*Session, error) {
	if inputStream == nil {
		inputStream = os.Stdin
	}
	if outputStream == nil {
		outputStream = os.Stdout
	}
	if opts.Width < 1 {
		opts.Width = 80
	}
	if opts.Mode == "" {
		opts.Mode = ModeValue
	}
	if err := lang.Init(); err != nil {
		return nil, fmt.Errorf("initializing language: %w", err)
	}

	sess := &Session{
		lang: lang,
		out:  bufio.NewWriter(outputStream),
		opts: opts,
	}

	useReadline := !opts.ForceDirect && inputStream == os.Stdin && outputStream == os.Stdout

	if useReadline {
		var err error
		sess.in, err = input.NewInteractiveReader(promptMain, opts.HistoryFile)
		if err != nil {
			return nil, fmt.Errorf("initializing interactive-mode input reader: %w", err)
		}
	} else {
		sess.direct = true
		var promptOut io.Writer
		if inputStream == os.Stdin {
			promptOut = sess.out
		}
		dr := input.NewDirectReader(inputStream, promptOut)
		dr.SetPrompt(promptMain)
		sess.in = dr
	}

	return sess, nil
}

// Close closes all resources associated with the Session, including any
// readline-related resources created for interactive mode.
func (sess *Session) Close() error {
	if sess.running {
		return fmt.Errorf("cannot close a running session")
	}

	if err := sess.in.Close(); err != nil {
		return fmt.Errorf("close input reader: %w", err)
	}

	return nil
}

// Mode returns what the session currently shows for parsed input.
func (sess *Session) Mode() Mode {
	return sess.opts.Mode
}

func (sess *Session) write(s string) error {
	if _, err := sess.out.WriteString(s); err != nil {
		return fmt.Errorf("could not write output: %w", err)
	}
	if err := sess.out.Flush(); err != nil {
		return fmt.Errorf("could not flush output: %w", err)
	}
	return nil
}

func (sess *Session) writeWrapped(s string) error {
	return sess.write(rosed.Edit(s).Wrap(sess.opts.Width).String() + "\n")
}

// RunUntilQuit reads and parses input until the input ends or the :quit
// command is given.
func (sess *Session) RunUntilQuit() error {
	introMsg := fmt.Sprintf("parselet REPL for %s (.%s)\n", sess.lang.Name, sess.lang.Extension)
	if sess.direct {
		introMsg += "(direct input mode)\n"
	}
	introMsg += strings.Repeat("=", len(introMsg)-1) + "\n"
	introMsg += "Type :help for commands.\n"
	if err := sess.write(introMsg); err != nil {
		return err
	}

	sess.running = true
	defer func() {
		sess.running = false
	}()

	for sess.running {
		line, err := sess.in.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("get input: %w", err)
		}

		if sess.pending.Len() == 0 && strings.HasPrefix(strings.TrimSpace(line), ":") {
			if err := sess.command(strings.TrimSpace(line)); err != nil {
				return err
			}
			continue
		}

		if err := sess.feed(line); err != nil {
			return err
		}
	}

	return sess.write("Goodbye\n")
}

// feed adds a line to the pending input and parses everything pending.
func (sess *Session) feed(line string) error {
	blank := strings.TrimSpace(line) == ""
	continuing := sess.pending.Len() > 0

	sess.pending.WriteString(line)
	sess.pending.WriteRune('\n')
	text := sess.pending.String()

	pn, err := sess.lang.ParseWith(parselet.NewStringInput(text), sess.opts.Parse)
	if err != nil {
		var perr *parselet.ParseError
		if errors.As(err, &perr) && perr.EOF && !(continuing && blank) {
			sess.setContinuing(true)
			return nil
		}
		sess.setContinuing(false)

		if perr != nil {
			return sess.write(perr.FullMessage(source.New("", text)) + "\n")
		}
		return sess.writeWrapped("ERROR: " + err.Error())
	}

	sess.setContinuing(false)
	out, err := sess.show(pn)
	if err != nil {
		return sess.writeWrapped("ERROR: " + err.Error())
	}
	return sess.write(out)
}

func (sess *Session) setContinuing(cont bool) {
	if cont {
		sess.in.AllowBlank(true)
		sess.in.SetPrompt(promptContinue)
		return
	}
	sess.pending.Reset()
	sess.in.AllowBlank(false)
	sess.in.SetPrompt(promptMain)
}

// show renders a parse result for the current mode.
func (sess *Session) show(pn parselet.ParseNode) (string, error) {
	v := pn.Semantic()

	switch sess.opts.Mode {
	case ModePrint:
		gen, err := sess.lang.Generate(nil, v)
		if err != nil {
			return "", err
		}
		text := parselet.FormatIndent(gen, sess.opts.Indent)
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		return text, nil
	case ModeTree:
		return parselet.Dump(pn) + "\n", nil
	case ModeYAML:
		data, err := valueyaml.Marshal(v, 2)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return parselet.ValueString(v) + "\n", nil
	}
}

const helpText = `Enter source text to parse it. Input that ends too early is continued on the next line; enter a blank line to give up on it.

Commands:
  :mode [value|print|tree|yaml]  show or change what is shown for parsed input
  :grammar                       list the language's parselets
  :help                          show this help
  :quit                          leave the REPL`

func (sess *Session) command(line string) error {
	fields := strings.Fields(line)

	switch strings.ToLower(fields[0]) {
	case ":quit", ":q", ":exit":
		sess.running = false
		return nil
	case ":help", ":h", ":?":
		return sess.write(helpText + "\n")
	case ":grammar":
		return sess.write(sess.lang.String())
	case ":mode":
		if len(fields) < 2 {
			return sess.write(fmt.Sprintf("mode is %s\n", sess.opts.Mode))
		}
		m, err := ParseMode(fields[1])
		if err != nil {
			return sess.writeWrapped("ERROR: " + err.Error())
		}
		sess.opts.Mode = m
		return sess.write(fmt.Sprintf("mode is now %s\n", m))
	default:
		return sess.writeWrapped(fmt.Sprintf("ERROR: unknown command %q; type :help for a list of commands", fields[0]))
	}
}
