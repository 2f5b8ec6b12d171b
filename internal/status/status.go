// Package status prints the user-facing per-file lines of a conversion run.
package status

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/hupe1980/psdwatch/internal/convert"
)

// ClockLayout is the timestamp format of watch-mode lines.
const ClockLayout = "15:04:05"

// Printer writes status lines. It is safe for concurrent use.
type Printer struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time

	timestamps bool

	ok   lipgloss.Style
	fail lipgloss.Style
	dim  lipgloss.Style
}

// Option configures a Printer.
type Option func(*Printer, *lipgloss.Renderer)

// WithoutColor disables ANSI styling even on a terminal.
func WithoutColor() Option {
	return func(_ *Printer, r *lipgloss.Renderer) { r.SetColorProfile(termenv.Ascii) }
}

// WithTimestamps prefixes every result line with the wall clock.
func WithTimestamps() Option {
	return func(p *Printer, _ *lipgloss.Renderer) { p.timestamps = true }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Printer, _ *lipgloss.Renderer) { p.now = now }
}

// New creates a Printer writing to w. Colour is used only when w is a
// terminal that supports it.
func New(w io.Writer, opts ...Option) *Printer {
	if w == nil {
		w = io.Discard
	}

	r := lipgloss.NewRenderer(w)
	p := &Printer{w: w, now: time.Now}

	for _, opt := range opts {
		opt(p, r)
	}

	p.ok = r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	p.fail = r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	p.dim = r.NewStyle().Foreground(lipgloss.Color("8"))

	return p
}

// Result prints the outcome of one conversion.
func (p *Printer) Result(res convert.Result) {
	var line string

	if res.OK() {
		line = fmt.Sprintf("%s → %s %s %s",
			res.Source, res.Target, p.ok.Render("OK"),
			p.dim.Render("("+res.Duration.Round(time.Millisecond).String()+")"))
	} else {
		line = fmt.Sprintf("%s → %s %v", res.Source, p.fail.Render("ERROR:"), res.Err)
	}

	if p.timestamps {
		line = p.dim.Render("["+p.now().Format(ClockLayout)+"]") + " " + line
	}

	p.println(line)
}

// Printf prints a free-form line.
func (p *Printer) Printf(format string, args ...any) {
	p.println(fmt.Sprintf(format, args...))
}

func (p *Printer) println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.w, line)
}
