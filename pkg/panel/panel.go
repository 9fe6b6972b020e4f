// Package panel provides a Fyne widget showing the LED matrix and the
// connectivity status display.
package panel

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/micscan/pkg/config"
	"github.com/itohio/micscan/pkg/display"
	"github.com/itohio/micscan/pkg/scan"
)

var _ display.Renderer = (*Widget)(nil)

// Widget is a custom Fyne widget drawing the LED matrix and status text.
type Widget struct {
	widget.BaseWidget

	matrix config.MatrixConfig

	// Data (protected by mu)
	mu       sync.RWMutex
	level    int
	volts    float32
	status   scan.Status
	scanMode bool
}

// New creates a new Widget for the given matrix geometry.
func New(matrix config.MatrixConfig) *Widget {
	w := &Widget{matrix: matrix}
	w.ExtendBaseWidget(w)
	return w
}

// SetIntensity updates the level shown on the matrix.
// It must run on the Fyne main thread.
func (w *Widget) SetIntensity(level int) {
	w.mu.Lock()
	w.level = level
	w.mu.Unlock()

	w.Refresh()
}

// SetStatus updates the status display.
// It must run on the Fyne main thread.
func (w *Widget) SetStatus(s scan.Status) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()

	w.Refresh()
}

// SetReading updates the envelope voltage label and the scan mode indicator.
// It must run on the Fyne main thread.
func (w *Widget) SetReading(volts float32, scanMode bool) {
	w.mu.Lock()
	w.volts = volts
	w.scanMode = scanMode
	w.mu.Unlock()

	w.Refresh()
}

// RenderIntensity schedules SetIntensity on the Fyne main thread.
func (w *Widget) RenderIntensity(level int) {
	fyne.Do(func() { w.SetIntensity(level) })
}

// RenderStatus schedules SetStatus on the Fyne main thread.
func (w *Widget) RenderStatus(s scan.Status) {
	fyne.Do(func() { w.SetStatus(s) })
}

// Frame returns the matrix frame for the current level.
func (w *Widget) Frame() display.Frame {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return display.NewFrame(w.matrix, w.level)
}

// State returns the status and scan mode currently shown.
func (w *Widget) State() (scan.Status, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status, w.scanMode
}

// CreateRenderer creates the widget renderer.
func (w *Widget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(colorBackground)

	r := &panelRenderer{
		panel:  w,
		bg:     bg,
		status: canvas.NewText("", colorInactive),
		value:  canvas.NewText("", colorLabel),
	}
	r.status.TextSize = 18
	r.status.TextStyle = fyne.TextStyle{Bold: true}
	r.status.Alignment = fyne.TextAlignCenter
	r.value.TextSize = 12
	r.value.Alignment = fyne.TextAlignCenter

	leds := w.matrix.Rows * w.matrix.Cols
	if leds < 0 {
		leds = 0
	}
	r.leds = make([]*canvas.Circle, leds)
	for i := range r.leds {
		r.leds[i] = canvas.NewCircle(colorUnlit)
	}

	r.objects = make([]fyne.CanvasObject, 0, leds+3)
	r.objects = append(r.objects, bg)
	for _, led := range r.leds {
		r.objects = append(r.objects, led)
	}
	r.objects = append(r.objects, r.status, r.value)

	r.Refresh()
	return r
}

var (
	colorBackground = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	colorUnlit      = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	colorLabel      = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	colorInactive   = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	colorFound      = color.RGBA{R: 0, G: 204, B: 51, A: 255}
	colorNotFound   = color.RGBA{R: 255, G: 51, B: 0, A: 255}
	colorScanMode   = color.RGBA{R: 100, G: 200, B: 255, A: 255}
)

// ledColor returns the color of a lit LED in row. Rows near the top get warmer.
func ledColor(row, rows int) color.Color {
	if rows <= 1 {
		return colorFound
	}
	frac := float32(rows-1-row) / float32(rows-1)
	return color.RGBA{
		R: uint8(255 * frac),
		G: uint8(204 - 104*frac),
		B: 0,
		A: 255,
	}
}

func statusColor(s scan.Status) color.Color {
	switch s {
	case scan.Found:
		return colorFound
	case scan.NotFound:
		return colorNotFound
	default:
		return colorInactive
	}
}
