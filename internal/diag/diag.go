// Package diag prints human-readable "[id] message" diagnostics to stderr,
// with severity-colored text when stderr is a terminal.
package diag

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	infoColor = color.New(color.FgCyan)
	warnColor = color.New(color.FgYellow)
	dropColor = color.New(color.FgRed)
)

// Logger writes diagnostics for one node (an RDT sender or a RAFT replica),
// prefixed with that node's id.
type Logger struct {
	id string
}

// New returns a Logger that prefixes every line with "[id]".
func New(id string) *Logger {
	return &Logger{id: id}
}

// Info reports a normal state transition (election won, segment sent, ...).
func (l *Logger) Info(format string, args ...any) {
	l.print(infoColor, format, args...)
}

// Warn reports a retransmit, timeout, or step-down.
func (l *Logger) Warn(format string, args ...any) {
	l.print(warnColor, format, args...)
}

// Drop reports a malformed or rejected message being discarded.
func (l *Logger) Drop(format string, args ...any) {
	l.print(dropColor, format, args...)
}

func (l *Logger) print(c *color.Color, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.Fprintf(os.Stderr, "[%s] %s\n", l.id, msg)
}
