package terminal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// SpinnerFrames are the spinner animation frames.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinnerTint colors the animation glyph without touching the message.
var spinnerTint = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"})

const frameInterval = 80 * time.Millisecond

// Spinner shows progress while the pipeline waits on the advisory
// model. Stop clears the line so the reply can render in its place.
type Spinner struct {
	mu      sync.Mutex
	out     io.Writer
	message string
	frames  []string

	started time.Time
	done    chan struct{}
	once    sync.Once
}

// NewSpinner creates a spinner writing to stdout.
func NewSpinner(message string) *Spinner {
	return NewSpinnerWithOutput(os.Stdout, message)
}

// NewSpinnerWithOutput creates a spinner that draws to out.
func NewSpinnerWithOutput(out io.Writer, message string) *Spinner {
	return &Spinner{
		out:     out,
		message: message,
		frames:  SpinnerFrames,
		done:    make(chan struct{}),
	}
}

// SetMessage swaps the text shown next to the animation.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Start renders the first frame immediately and animates until Stop.
func (s *Spinner) Start() {
	s.started = time.Now()
	s.render(0)
	go s.animate()
}

func (s *Spinner) animate() {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for frame := 1; ; frame++ {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.render(frame)
		}
	}
}

// render draws one frame over the current line. After the first second
// the elapsed time is appended.
func (s *Spinner) render(frame int) {
	s.mu.Lock()
	glyph, msg := s.frames[frame%len(s.frames)], s.message
	s.mu.Unlock()

	line := fmt.Sprintf("\r%s %s", spinnerTint.Render(glyph), msg)
	if elapsed := time.Since(s.started).Round(time.Second); elapsed >= time.Second {
		line += fmt.Sprintf(" (%s)", elapsed)
	}
	fmt.Fprint(s.out, line)
}

// Elapsed reports how long the spinner has been running.
func (s *Spinner) Elapsed() time.Duration {
	if s.started.IsZero() {
		return 0
	}
	return time.Since(s.started)
}

// Stop ends the animation and clears the line. Safe to call more than
// once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		fmt.Fprint(s.out, "\r\033[K")
	})
}
