// Package display renders intensity levels on an LED matrix frame and the
// connectivity status as a short glyph.
package display

import (
	"strings"

	"github.com/itohio/micscan/pkg/config"
	"github.com/itohio/micscan/pkg/scan"
)

// IntensityRenderer is the LED matrix collaborator.
type IntensityRenderer interface {
	RenderIntensity(level int)
}

// Renderer draws both the LED matrix and the status display.
type Renderer interface {
	IntensityRenderer
	scan.StatusRenderer
}

// Frame is one LED matrix image. LEDs light up as a bar growing from the
// bottom row, left to right within a row.
type Frame struct {
	Rows int
	Cols int
	Lit  int // Number of lit LEDs
}

// NewFrame maps level onto the matrix. cfg.FullLevel lights every LED; the
// result is clamped to 0..Rows*Cols.
func NewFrame(cfg config.MatrixConfig, level int) Frame {
	f := Frame{Rows: cfg.Rows, Cols: cfg.Cols}
	leds := f.LEDs()
	if leds <= 0 || level <= 0 {
		return f
	}

	full := cfg.FullLevel
	if full <= 0 {
		full = leds
	}
	if level >= full {
		f.Lit = leds
		return f
	}
	f.Lit = level * leds / full
	return f
}

// LEDs returns the number of LEDs in the matrix.
func (f Frame) LEDs() int {
	if f.Rows <= 0 || f.Cols <= 0 {
		return 0
	}
	return f.Rows * f.Cols
}

// On reports whether the LED at row, col is lit. Row 0 is the top row.
func (f Frame) On(row, col int) bool {
	if row < 0 || row >= f.Rows || col < 0 || col >= f.Cols {
		return false
	}
	index := (f.Rows-1-row)*f.Cols + col
	return index < f.Lit
}

// String draws the frame with one line per row.
func (f Frame) String() string {
	var b strings.Builder
	for row := 0; row < f.Rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < f.Cols; col++ {
			if f.On(row, col) {
				b.WriteString(LEDOn)
			} else {
				b.WriteString(LEDOff)
			}
		}
	}
	return b.String()
}

// LED cell glyphs.
const (
	LEDOn  = "●"
	LEDOff = "·"
)

// Glyph returns the status display text for s.
func Glyph(s scan.Status) string {
	switch s {
	case scan.Found:
		return "Connected"
	case scan.NotFound:
		return "Disconnected"
	case scan.Inactive:
		return "Scan off"
	default:
		return "?"
	}
}
