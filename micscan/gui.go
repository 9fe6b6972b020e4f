package main

import (
	"context"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/micscan/internal/log"
	"github.com/itohio/micscan/pkg/config"
	"github.com/itohio/micscan/pkg/monitor"
	"github.com/itohio/micscan/pkg/panel"
)

// appState holds the GUI application state.
type appState struct {
	cfg        *config.Config
	configPath string
	useMock    bool

	window     fyne.Window
	panel      *panel.Widget
	connectBtn *widget.Button
	resetBtn   *widget.Button

	// Current session (nil if not connected)
	mu      sync.Mutex
	session *session
	cancel  context.CancelFunc
	done    chan struct{} // Closed when the session's Run returns
}

// runGUI runs the Fyne application until the window is closed.
func runGUI(cfg *config.Config, configPath string, useMock bool) error {
	application := app.NewWithID("com.itohio.micscan")

	window := application.NewWindow("Mic Scan")
	window.Resize(fyne.NewSize(420, 520))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: configPath,
		useMock:    useMock,
		window:     window,
		panel:      panel.New(cfg.Matrix),
	}

	toolbar := createToolbar(state)

	window.SetContent(container.NewBorder(toolbar, nil, nil, nil, state.panel))
	window.SetOnClosed(func() {
		disconnect(state)
	})
	window.ShowAndRun()
	return nil
}

// createToolbar creates the toolbar with Connect, Settings and Reset buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	resetBtn := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), func() {
		state.mu.Lock()
		s := state.session
		state.mu.Unlock()
		if s != nil {
			s.counter.Reset()
		}
	})
	resetBtn.Disable()
	state.resetBtn = resetBtn

	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(connectBtn, settingsBtn), // left
		resetBtn, // right
		nil,      // center
	)
}

func isConnected(state *appState) bool {
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.session != nil
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if isConnected(state) {
		disconnect(state)
		state.connectBtn.SetIcon(theme.LoginIcon())
		state.resetBtn.Disable()
		return
	}

	s, err := newSession(state.cfg, state.useMock, state.panel)
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}

	s.loop.OnCycle(func(r monitor.Reading) {
		fyne.Do(func() {
			state.panel.SetReading(r.Volts, r.Event.ScanMode)
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	state.mu.Lock()
	state.session = s
	state.cancel = cancel
	state.done = done
	state.mu.Unlock()

	go func() {
		defer close(done)
		if err := s.Run(ctx); err != nil {
			fyne.Do(func() {
				dialog.ShowError(fmt.Errorf("measurement stopped: %w", err), state.window)
			})
		}
	}()

	state.connectBtn.SetIcon(theme.LogoutIcon())
	state.resetBtn.Enable()
}

// disconnect stops the current session and waits for its loop to exit.
func disconnect(state *appState) {
	state.mu.Lock()
	s, cancel, done := state.session, state.cancel, state.done
	state.session, state.cancel, state.done = nil, nil, nil
	state.mu.Unlock()

	if s == nil {
		return
	}

	cancel()
	<-done
	if err := s.Close(); err != nil {
		log.Warn("failed to close session", "err", err)
	}
	log.Info("disconnected")
}
