package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/itohio/micscan/pkg/config"
	"github.com/itohio/micscan/pkg/scan"
)

// Colors and styles shared by the terminal renderers and the TUI.
// Golden output in tests depends on these values.
var (
	ColorLit      = lipgloss.Color("#00FF41")
	ColorUnlit    = lipgloss.Color("#004A0A")
	ColorFound    = lipgloss.Color("#00CC33")
	ColorNotFound = lipgloss.Color("#FF3300")
	ColorInactive = lipgloss.Color("#888888")

	StyleLit   = lipgloss.NewStyle().Foreground(ColorLit)
	StyleUnlit = lipgloss.NewStyle().Foreground(ColorUnlit)

	StyleFound    = lipgloss.NewStyle().Bold(true).Foreground(ColorFound)
	StyleNotFound = lipgloss.NewStyle().Bold(true).Foreground(ColorNotFound)
	StyleInactive = lipgloss.NewStyle().Foreground(ColorInactive)

	StyleMatrix = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorUnlit).
			Padding(0, 1)
)

// RenderFrame draws f with lit and unlit LED styles, one row per line.
func RenderFrame(f Frame) string {
	rows := make([]string, 0, f.Rows)
	for row := 0; row < f.Rows; row++ {
		cells := make([]string, 0, f.Cols)
		for col := 0; col < f.Cols; col++ {
			if f.On(row, col) {
				cells = append(cells, StyleLit.Render(LEDOn))
			} else {
				cells = append(cells, StyleUnlit.Render(LEDOff))
			}
		}
		rows = append(rows, strings.Join(cells, " "))
	}
	return StyleMatrix.Render(strings.Join(rows, "\n"))
}

// RenderStatus draws the status glyph in the color of s.
func RenderStatus(s scan.Status) string {
	glyph := Glyph(s)
	switch s {
	case scan.Found:
		return StyleFound.Render(glyph)
	case scan.NotFound:
		return StyleNotFound.Render(glyph)
	default:
		return StyleInactive.Render(glyph)
	}
}

// Terminal writes one styled line per update to w.
type Terminal struct {
	matrix config.MatrixConfig

	mu     sync.Mutex
	w      io.Writer
	level  int
	status scan.Status
}

// NewTerminal creates a line renderer writing to w.
func NewTerminal(w io.Writer, matrix config.MatrixConfig) *Terminal {
	return &Terminal{w: w, matrix: matrix}
}

// RenderIntensity records level and writes the current line.
func (t *Terminal) RenderIntensity(level int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.level = level
	t.writeLine()
}

// RenderStatus records s and writes the current line.
func (t *Terminal) RenderStatus(s scan.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
	t.writeLine()
}

// writeLine must be called with mu held.
func (t *Terminal) writeLine() {
	f := NewFrame(t.matrix, t.level)

	var bar strings.Builder
	for i := 0; i < f.LEDs(); i++ {
		if i < f.Lit {
			bar.WriteString(StyleLit.Render(LEDOn))
		} else {
			bar.WriteString(StyleUnlit.Render(LEDOff))
		}
	}

	fmt.Fprintf(t.w, "%s %3d  %s\n", bar.String(), t.level, RenderStatus(t.status))
}
