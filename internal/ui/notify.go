// Package ui renders operator-facing output and prompts.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

type kind int

const (
	activityKind kind = iota
	successKind
	warnKind
	errorKind
)

var styles = map[kind]struct {
	symbol string
	color  *color.Color
}{
	activityKind: {"► ", color.New(color.FgYellow)},
	successKind:  {"✔ ", color.New(color.FgGreen)},
	warnKind:     {"⚠ ", color.New(color.FgYellow, color.Bold)},
	errorKind:    {"✗ ", color.New(color.FgRed)},
}

// Printer writes colored one-line notifications. Continuation lines of a
// multi-line message are indented under the first.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w, or to stdout when w is nil.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{w: w}
}

func (p *Printer) Activity(format string, args ...any) { p.write(activityKind, format, args...) }
func (p *Printer) Success(format string, args ...any)  { p.write(successKind, format, args...) }
func (p *Printer) Warn(format string, args ...any)     { p.write(warnKind, format, args...) }
func (p *Printer) Error(format string, args ...any)    { p.write(errorKind, format, args...) }

// Println writes an unstyled line.
func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.w, a...)
}

func (p *Printer) write(k kind, format string, args ...any) {
	style := styles[k]
	content := format
	if len(args) > 0 {
		content = fmt.Sprintf(format, args...)
	}
	indent := strings.Repeat(" ", len([]rune(style.symbol)))
	content = strings.ReplaceAll(content, "\n", "\n"+indent)
	style.color.Fprintf(p.w, "%s%s\n", style.symbol, content)
}
