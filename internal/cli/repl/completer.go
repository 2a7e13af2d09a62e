package repl

import (
	"slices"
	"strings"
)

// Completer suggests command names by prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over names.
func NewCompleter(names ...string) *Completer {
	c := &Completer{}
	for _, n := range names {
		c.Add(n)
	}
	return c
}

// Add registers a name, keeping the list sorted and unique.
func (c *Completer) Add(name string) {
	i, found := slices.BinarySearch(c.commands, name)
	if !found {
		c.commands = slices.Insert(c.commands, i, name)
	}
}

// Complete returns registered names starting with prefix, sorted.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
