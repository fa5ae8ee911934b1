// Package output renders CLI messages with status icons, coloring
// them only when the destination is a terminal.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI color sequences.
const (
	colorReset  = "\x1b[0m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorRed    = "\x1b[31m"
)

// Writer renders status-prefixed lines to a stream.
type Writer struct {
	out      io.Writer
	useColor bool
}

// New creates a Writer. Color is enabled only when out is a terminal
// and NO_COLOR is unset.
func New(out io.Writer) *Writer {
	w := &Writer{out: out}
	if f, ok := out.(*os.File); ok {
		w.useColor = os.Getenv("NO_COLOR") == "" &&
			(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	}
	return w
}

// Plain creates a Writer with color disabled, for tests and pipes.
func Plain(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Successf prints a green checkmark line.
func (w *Writer) Successf(format string, args ...any) {
	w.line(colorGreen, "✓", format, args...)
}

// Warnf prints a yellow warning line.
func (w *Writer) Warnf(format string, args ...any) {
	w.line(colorYellow, "!", format, args...)
}

// Errorf prints a red cross line.
func (w *Writer) Errorf(format string, args ...any) {
	w.line(colorRed, "✗", format, args...)
}

// Infof prints an unprefixed line.
func (w *Writer) Infof(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format+"\n", args...)
}

// Write errors are ignored throughout; console output is best effort.
func (w *Writer) line(color, icon, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if w.useColor {
		_, _ = fmt.Fprintf(w.out, "%s%s%s %s\n", color, icon, colorReset, msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
}
