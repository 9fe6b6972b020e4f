package panel

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/micscan/pkg/display"
)

// panelRenderer renders the panel widget.
type panelRenderer struct {
	panel *Widget

	bg     *canvas.Rectangle
	leds   []*canvas.Circle
	status *canvas.Text
	value  *canvas.Text

	objects []fyne.CanvasObject
}

const (
	ledGap      = float32(6)
	labelHeight = float32(28)
)

// MinSize returns the minimum size of the widget.
func (r *panelRenderer) MinSize() fyne.Size {
	return fyne.NewSize(240, 300)
}

// Layout arranges the LED grid in a centered square above the labels.
func (r *panelRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)

	rows, cols := r.panel.matrix.Rows, r.panel.matrix.Cols
	gridH := size.Height - 2*labelHeight
	if rows > 0 && cols > 0 && gridH > 0 {
		cell := min(size.Width/float32(cols), gridH/float32(rows))
		diameter := cell - ledGap
		if diameter < 1 {
			diameter = 1
		}
		offX := (size.Width - cell*float32(cols)) / 2
		offY := (gridH - cell*float32(rows)) / 2

		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				led := r.leds[row*cols+col]
				led.Resize(fyne.NewSize(diameter, diameter))
				led.Move(fyne.NewPos(offX+float32(col)*cell+ledGap/2, offY+float32(row)*cell+ledGap/2))
			}
		}
	}

	r.status.Resize(fyne.NewSize(size.Width, labelHeight))
	r.status.Move(fyne.NewPos(0, size.Height-2*labelHeight))
	r.value.Resize(fyne.NewSize(size.Width, labelHeight))
	r.value.Move(fyne.NewPos(0, size.Height-labelHeight))
}

// Refresh updates LED colors and labels from the widget state.
func (r *panelRenderer) Refresh() {
	r.panel.mu.RLock()
	level := r.panel.level
	volts := r.panel.volts
	status := r.panel.status
	scanMode := r.panel.scanMode
	r.panel.mu.RUnlock()

	frame := display.NewFrame(r.panel.matrix, level)
	for row := 0; row < frame.Rows; row++ {
		for col := 0; col < frame.Cols; col++ {
			led := r.leds[row*frame.Cols+col]
			if frame.On(row, col) {
				led.FillColor = ledColor(row, frame.Rows)
			} else {
				led.FillColor = colorUnlit
			}
			led.Refresh()
		}
	}

	r.status.Text = display.Glyph(status)
	r.status.Color = statusColor(status)
	r.status.Refresh()

	r.value.Text = fmt.Sprintf("level %d  %.3f V", level, volts)
	r.value.Color = colorLabel
	if scanMode {
		r.value.Text += "  SCAN"
		r.value.Color = colorScanMode
	}
	r.value.Refresh()
}

// Objects returns all canvas objects for rendering.
func (r *panelRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *panelRenderer) Destroy() {}
