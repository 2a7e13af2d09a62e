package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// ErrExit ends the loop when returned by a command.
var ErrExit = errors.New("repl: exit")

// Command is one REPL verb.
type Command struct {
	Name  string
	Args  string
	Usage string
	Run   func(ctx context.Context, args []string) error
}

// REPL is a read-eval-print loop over registered commands.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	commands  map[string]*Command
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithPrompt sets the prompt text.
func WithPrompt(prompt string) Option {
	return func(r *REPL) {
		r.prompt = prompt
	}
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// New creates a REPL with the built-in help and exit commands.
func New(in io.Reader, out io.Writer, opts ...Option) *REPL {
	r := &REPL{
		input:     in,
		output:    out,
		prompt:    "> ",
		commands:  make(map[string]*Command),
		completer: NewCompleter(),
		history:   NewHistory("", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Register(&Command{Name: "help", Usage: "list commands", Run: r.help})
	r.Register(&Command{Name: "exit", Usage: "leave the shell", Run: func(context.Context, []string) error { return ErrExit }})
	r.Register(&Command{Name: "quit", Usage: "leave the shell", Run: func(context.Context, []string) error { return ErrExit }})
	return r
}

// Register adds or replaces a command.
func (r *REPL) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	r.completer.Add(cmd.Name)
}

// Output returns the writer commands should print to.
func (r *REPL) Output() io.Writer { return r.output }

// History returns the history store.
func (r *REPL) History() *History { return r.history }

// Complete returns command names starting with prefix.
func (r *REPL) Complete(prefix string) []string { return r.completer.Complete(prefix) }

// Run reads lines until EOF, an exit command, or ctx ends. Command
// errors are printed and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.input)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.output, r.prompt)
		if !scanner.Scan() {
			fmt.Fprintln(r.output)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r.history.Add(line)

		err := r.Execute(ctx, line)
		if errors.Is(err, ErrExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(r.output, "error: %v\n", err)
		}
	}
}

// Execute runs one line.
func (r *REPL) Execute(ctx context.Context, line string) error {
	fields, err := Split(line)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := r.commands[fields[0]]
	if !ok {
		if s := r.completer.Complete(fields[0]); len(s) > 0 {
			return fmt.Errorf("unknown command %q (did you mean %s?)", fields[0], strings.Join(s, ", "))
		}
		return fmt.Errorf("unknown command %q, try help", fields[0])
	}
	return cmd.Run(ctx, fields[1:])
}

func (r *REPL) help(context.Context, []string) error {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		c := r.commands[name]
		fmt.Fprintf(r.output, "  %-28s %s\n", strings.TrimSpace(c.Name+" "+c.Args), c.Usage)
	}
	return nil
}

// Split breaks a line into words. Double quotes group words and a
// backslash escapes the next character.
func Split(line string) ([]string, error) {
	var (
		words   []string
		cur     strings.Builder
		inQuote bool
		inWord  bool
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped, inWord = true, true
		case r == '"':
			inQuote = !inQuote
			inWord = true
		case !inQuote && (r == ' ' || r == '\t'):
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}
