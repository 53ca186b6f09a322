package main

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/willbeason/deepzoom/pkg/render"
	"github.com/willbeason/deepzoom/pkg/session"
)

// statusLines is the number of terminal lines below the picture.
const statusLines = 2

type keyMap struct {
	Left, Right, Up, Down key.Binding
	ZoomIn, ZoomOut       key.Binding
	More, Fewer           key.Binding
	Stop, Quit            key.Binding
}

var keys = keyMap{
	Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←↑↓→", "pan")),
	Right:   key.NewBinding(key.WithKeys("right", "l")),
	Up:      key.NewBinding(key.WithKeys("up", "k")),
	Down:    key.NewBinding(key.WithKeys("down", "j")),
	ZoomIn:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "zoom")),
	ZoomOut: key.NewBinding(key.WithKeys("-")),
	More:    key.NewBinding(key.WithKeys("i"), key.WithHelp("i/u", "iterations")),
	Fewer:   key.NewBinding(key.WithKeys("u")),
	Stop:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop/start")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

type tickMsg time.Time

type model struct {
	session *session.Session
	colors  *render.Gradient
	spinner spinner.Model
	poll    time.Duration

	running bool
	err     error
}

func newModel(s *session.Session, colors *render.Gradient, poll time.Duration) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		session: s,
		colors:  colors,
		spinner: sp,
		poll:    poll,
		running: true,
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.poll, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type errMsg struct{ err error }

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.tick()}
	if err := m.session.Start(); err != nil {
		cmds = append(cmds, func() tea.Msg { return errMsg{err} })
	}
	return tea.Batch(cmds...)
}

func (m model) center() image.Point {
	w, h := m.session.Area.Size()
	return image.Pt(int(w)/2, int(h)/2)
}

// step is the pan distance in cells.
func (m model) step() int {
	w, _ := m.session.Area.Size()
	return max(int(w)/8, 1)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		width := max(msg.Width, 1)
		height := max(msg.Height-statusLines, 1) * 2
		m.err = m.session.Resize(uint32(width), uint32(height))
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tickMsg:
		m.session.ProcessEvents()
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.session
	m.err = nil

	switch {
	case key.Matches(msg, keys.Quit):
		s.Close()
		return m, tea.Quit

	case key.Matches(msg, keys.Left):
		m.err = s.Pan(image.Pt(-m.step(), 0))
	case key.Matches(msg, keys.Right):
		m.err = s.Pan(image.Pt(m.step(), 0))
	case key.Matches(msg, keys.Up):
		m.err = s.Pan(image.Pt(0, -m.step()))
	case key.Matches(msg, keys.Down):
		m.err = s.Pan(image.Pt(0, m.step()))

	case key.Matches(msg, keys.ZoomIn):
		m.err = s.Zoom(m.center(), 2)
	case key.Matches(msg, keys.ZoomOut):
		m.err = s.Zoom(m.center(), 0.5)

	case key.Matches(msg, keys.More):
		m.err = s.SetMaxIteration(s.MaxIteration() * 2)
	case key.Matches(msg, keys.Fewer):
		m.err = s.SetMaxIteration(max(s.MaxIteration()/2, 16))

	case key.Matches(msg, keys.Stop):
		if m.running {
			m.err = s.Stop()
		} else {
			m.err = s.Start()
		}
		m.running = !m.running
	}
	return m, nil
}

func (m model) status() string {
	s := m.session
	state := "done"
	if s.Mirror.Connected() {
		state = m.spinner.View() + " computing"
	}
	if !m.running {
		state = "stopped"
	}

	area := s.Area.Area()
	line := fmt.Sprintf("%s %5.1f%%  x=%s y=%s r=%s  %d iterations",
		state, 100*s.Mirror.ComputedRatio(),
		area.CenterX().Text('f'), area.CenterY().Text('f'), area.Radius().Text('g'),
		s.MaxIteration())
	if m.err != nil {
		return errorStyle.Render(m.err.Error())
	}
	return statusStyle.Render(line)
}

func help() string {
	var parts []string
	for _, b := range []key.Binding{keys.Left, keys.ZoomIn, keys.More, keys.Stop, keys.Quit} {
		parts = append(parts, b.Help().Key+" "+b.Help().Desc)
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}

func (m model) View() string {
	picture := render.Terminal(m.session.Mirror.Stage, m.session.MaxIteration(), m.colors)
	return picture + "\n" + m.status() + "\n" + help()
}
