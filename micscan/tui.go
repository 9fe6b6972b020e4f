package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/itohio/micscan/pkg/config"
	"github.com/itohio/micscan/pkg/display"
	"github.com/itohio/micscan/pkg/meter"
	"github.com/itohio/micscan/pkg/monitor"
	"github.com/itohio/micscan/pkg/scan"
)

// readingMsg carries one completed main-loop cycle.
type readingMsg monitor.Reading

// intensityMsg carries the level drawn on the LED matrix.
type intensityMsg int

// eventMsg carries the counter state after a cycle.
type eventMsg meter.Event

// statusMsg carries a connectivity status update.
type statusMsg scan.Status

// loopDoneMsg is sent when the main loop returns.
type loopDoneMsg struct{ err error }

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(display.ColorLit)
	styleLabel = lipgloss.NewStyle().Foreground(display.ColorInactive)
	styleScan  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFCC00"))
	styleError = lipgloss.NewStyle().Foreground(display.ColorNotFound)
)

// tuiModel is the Bubble Tea model. The session is shared by all model copies.
type tuiModel struct {
	cfg     *config.Config
	session *session

	level   int
	reading monitor.Reading
	event   meter.Event
	status  scan.Status
	err     error
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			return m, tea.Quit
		case "r", "R":
			m.session.counter.Reset()
		case "l", "L":
			if m.session.mic != nil {
				m.session.mic.Force(true)
			}
		case "s", "S":
			if m.session.mic != nil {
				m.session.mic.Force(false)
			}
		case "a", "A":
			if m.session.mic != nil {
				m.session.mic.Release()
			}
		}

	case intensityMsg:
		m.level = int(msg)

	case readingMsg:
		m.reading = monitor.Reading(msg)

	case eventMsg:
		m.event = meter.Event(msg)

	case statusMsg:
		m.status = scan.Status(msg)

	case loopDoneMsg:
		m.err = msg.err
		if msg.err == nil {
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m tuiModel) View() string {
	frame := display.NewFrame(m.cfg.Matrix, m.level)

	mode := styleLabel.Render("scan mode off")
	if m.event.ScanMode {
		mode = styleScan.Render("SCAN MODE")
	}

	info := strings.Join([]string{
		styleTitle.Render("micscan"),
		"",
		fmt.Sprintf("%s %d", styleLabel.Render("intensity"), m.reading.Intensity),
		fmt.Sprintf("%s %.3f V", styleLabel.Render("envelope "), m.reading.Volts),
		fmt.Sprintf("%s %.1f", styleLabel.Render("rms      "), m.reading.Power),
		fmt.Sprintf("%s %d/%d", styleLabel.Render("loud     "), m.event.Count, m.cfg.Meter.TripThreshold),
		"",
		mode,
		fmt.Sprintf("%s %s", display.RenderStatus(m.status), styleLabel.Render(m.cfg.Scan.TargetSSID)),
	}, "\n")

	view := lipgloss.JoinHorizontal(lipgloss.Top, display.RenderFrame(frame), "  ", info)

	help := "q quit  r reset"
	if m.session.mic != nil {
		help += "  l loud  s quiet  a auto"
	}
	view += "\n\n" + styleLabel.Render(help)

	if m.err != nil {
		view += "\n" + styleError.Render(m.err.Error())
	}
	return view + "\n"
}

// tuiRenderer forwards renderer calls into the Bubble Tea program.
type tuiRenderer struct {
	p *tea.Program
}

func (r *tuiRenderer) RenderIntensity(level int) {
	r.p.Send(intensityMsg(level))
}

func (r *tuiRenderer) RenderStatus(s scan.Status) {
	r.p.Send(statusMsg(s))
}

// runTUI runs the terminal interface until the user quits.
func runTUI(cfg *config.Config, useMock bool) error {
	renderer := &tuiRenderer{}

	s, err := newSession(cfg, useMock, renderer)
	if err != nil {
		return err
	}
	defer s.Close()

	p := tea.NewProgram(tuiModel{cfg: cfg, session: s}, tea.WithAltScreen())
	renderer.p = p

	s.loop.OnCycle(func(r monitor.Reading) {
		p.Send(readingMsg(r))
	})
	s.counter.OnUpdate(func(ev meter.Event) {
		p.Send(eventMsg(ev))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		p.Send(loopDoneMsg{err: s.Run(ctx)})
	}()

	final, err := p.Run()
	cancel()
	<-runDone
	if err != nil {
		return err
	}
	return final.(tuiModel).err
}
