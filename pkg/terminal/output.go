// Package terminal renders the conversation: markdown replies from the
// pipeline, clarification options, and styled status lines. Plain
// print/scroll output, no TUI framework.
package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// palette is the fixed style set for conversational output. Adaptive
// colors resolve against the detected terminal background.
var palette = struct {
	err     lipgloss.Style
	warn    lipgloss.Style
	success lipgloss.Style
	info    lipgloss.Style
	dim     lipgloss.Style
	bold    lipgloss.Style
	header  lipgloss.Style
	prompt  lipgloss.Style
}{
	err: lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}),
	warn:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFAA00"}),
	success: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"}),
	info:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"}),
	dim:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
	bold:    lipgloss.NewStyle().Bold(true),
	header: lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"}).BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).BorderForeground(lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#444444"}),
	prompt: lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"}),
}

// Writer prints styled lines and rendered markdown to one stream.
// Methods are safe for concurrent use.
type Writer struct {
	mu       sync.Mutex
	dst      io.Writer
	renderer *glamour.TermRenderer
}

// New creates a Writer on stdout. When stdout is not a terminal the
// markdown renderer is skipped and replies come out as plain text, so
// piped output stays clean.
func New() *Writer {
	w := NewWithOutput(os.Stdout)
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		w.renderer = nil
	}
	return w
}

// NewPlain creates a Writer on stdout that never renders markdown,
// regardless of terminal detection.
func NewPlain() *Writer {
	w := NewWithOutput(os.Stdout)
	w.renderer = nil
	return w
}

// NewWithOutput creates a Writer with a custom output destination.
func NewWithOutput(out io.Writer) *Writer {
	// Resolving the color profile up front lets the adaptive colors
	// pick their light or dark variant.
	_ = termenv.ColorProfile()

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(getTerminalWidth()-2, 100)),
	)
	return &Writer{dst: out, renderer: renderer}
}

// line formats, styles and prints one full output line.
func (w *Writer) line(style lipgloss.Style, format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.dst, style.Render(fmt.Sprintf(format, args...)))
}

// Print writes formatted text without a newline.
func (w *Writer) Print(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.dst, format, args...)
}

// Println writes one formatted line.
func (w *Writer) Println(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.dst, format+"\n", args...)
}

// Markdown renders markdown to the terminal. Pipeline replies carry
// markdown emphasis, so this is the main reply path. Without a
// renderer the raw text passes through unchanged.
func (w *Writer) Markdown(md string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.renderer == nil {
		fmt.Fprintln(w.dst, md)
		return nil
	}
	rendered, err := w.renderer.Render(md)
	if err != nil {
		fmt.Fprintln(w.dst, md)
		return err
	}
	fmt.Fprint(w.dst, rendered)
	return nil
}

// Options renders clarification choices as a numbered list, so the
// user can answer with the option text or its number.
func (w *Writer) Options(options []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, option := range options {
		fmt.Fprintln(w.dst, palette.dim.Render(fmt.Sprintf("  %d. %s", i+1, option)))
	}
}

// Prompt prints the input glyph without a trailing newline.
func (w *Writer) Prompt() {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprint(w.dst, palette.prompt.Render("❯")+" ")
}

// Error prints an error line in red.
func (w *Writer) Error(format string, args ...any) {
	w.line(palette.err, "error: "+format, args...)
}

// Warn prints a warning line in yellow.
func (w *Writer) Warn(format string, args ...any) {
	w.line(palette.warn, "warning: "+format, args...)
}

// Success prints a success line in green.
func (w *Writer) Success(format string, args ...any) {
	w.line(palette.success, "✓ "+format, args...)
}

// Info prints an informational line in blue.
func (w *Writer) Info(format string, args ...any) {
	w.line(palette.info, format, args...)
}

// Dim prints secondary text.
func (w *Writer) Dim(format string, args ...any) {
	w.line(palette.dim, format, args...)
}

// Bold prints emphasized text.
func (w *Writer) Bold(format string, args ...any) {
	w.line(palette.bold, format, args...)
}

// Header prints an underlined section title.
func (w *Writer) Header(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.dst, palette.header.Render(title))
}

// Newline emits a blank line.
func (w *Writer) Newline() {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.dst)
}

// Divider prints a horizontal rule.
func (w *Writer) Divider() {
	w.line(palette.dim, "%s", strings.Repeat("─", 60))
}

// List prints items as a bulleted list.
func (w *Writer) List(items []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, item := range items {
		fmt.Fprintln(w.dst, "  • "+item)
	}
}

// getTerminalWidth reads the stdout width, defaulting to 80 when not
// attached to a terminal.
func getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}
