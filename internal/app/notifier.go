package app

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ConsoleNotifier prints notices to a writer, one "» " prefixed line each
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleNotifier creates a notifier writing to out
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

// Notify writes message; multi-line notices are flattened with " | "
func (n *ConsoleNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.out, "» %s\n", strings.ReplaceAll(message, "\n", " | "))
}
