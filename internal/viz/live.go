package viz

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/export"
	"github.com/san-kum/vortexsim/internal/landscape"
	"github.com/san-kum/vortexsim/internal/sim"
)

const (
	canvasWidth     = 48
	canvasHeight    = 24
	historyCapacity = 240
	trailCapacity   = 120
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(44)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Opener starts a fresh stepping session for a topology at a current.
type Opener func(t landscape.Topology, current float64) (*sim.Session, *landscape.Landscape, error)

type LiveOptions struct {
	Topologies    []landscape.Topology
	Current       float64
	CurrentStep   float64 // change per up/down key
	StepsPerFrame int
	Theme         string
	SaveDir       string // where the s key writes SVG snapshots
}

// Model is the bubbletea model of the live vortex view.
type Model struct {
	open Opener
	opts LiveOptions

	topology  int
	session   *sim.Session
	landscape *landscape.Landscape
	proj      Projection
	sites     *Canvas
	vortices  *Canvas
	theme     Theme

	running bool
	err     error
	notice  string

	velocity []dynamo.Vec
	parallel []float64
	trails   []dynamo.Positions
	showHelp bool
}

func NewModel(open Opener, opts LiveOptions) (*Model, error) {
	if len(opts.Topologies) == 0 {
		opts.Topologies = landscape.Topologies()
	}
	if opts.StepsPerFrame < 1 {
		opts.StepsPerFrame = 1
	}
	if opts.CurrentStep <= 0 {
		opts.CurrentStep = 0.1
	}
	if opts.SaveDir == "" {
		opts.SaveDir = "."
	}
	m := &Model{
		open:     open,
		opts:     opts,
		sites:    NewCanvas(canvasWidth, canvasHeight),
		vortices: NewCanvas(canvasWidth, canvasHeight),
		theme:    GetTheme(opts.Theme),
		running:  true,
	}
	if err := m.reopen(opts.Current); err != nil {
		return nil, err
	}
	return m, nil
}

// reopen starts a new session on the selected topology and redraws the sites.
func (m *Model) reopen(current float64) error {
	ss, l, err := m.open(m.opts.Topologies[m.topology], current)
	if err != nil {
		return err
	}
	m.session, m.landscape = ss, l
	m.err = nil
	m.velocity = m.velocity[:0]
	m.parallel = m.parallel[:0]
	m.trails = m.trails[:0]
	m.proj = NewProjection(l.Domain, m.sites)
	m.sites.Clear()
	for _, s := range l.Sites {
		x, y := m.proj.Point(s.Pos)
		m.sites.DrawCircle(x, y, m.proj.Radius(s.Radius))
	}
	m.draw()
	return nil
}

func (m *Model) Init() tea.Cmd { return tick() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "up", "k":
			m.session.SetCurrent(m.session.Current() + m.opts.CurrentStep)
			m.velocity = m.velocity[:0]
		case "down", "j":
			m.session.SetCurrent(m.session.Current() - m.opts.CurrentStep)
			m.velocity = m.velocity[:0]
		case "tab":
			m.topology = (m.topology + 1) % len(m.opts.Topologies)
			m.setError(m.reopen(m.session.Current()))
		case "r":
			m.setError(m.reopen(m.session.Current()))
		case "t":
			m.theme = NextTheme(m.theme.Name)
		case "s":
			m.save()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.advance()
		}
		m.draw()
		return m, tick()
	}
	return m, nil
}

func (m *Model) setError(err error) {
	if err != nil {
		m.err = err
	}
}

// advance runs one frame worth of steps and records the drift history.
func (m *Model) advance() {
	for i := 0; i < m.opts.StepsPerFrame; i++ {
		if err := m.session.Step(); err != nil {
			m.err = err
			m.running = false
			return
		}
		v := m.session.Velocity()
		m.velocity = appendCapped(m.velocity, v, historyCapacity)
		m.parallel = appendCapped(m.parallel, m.session.Parallel(), historyCapacity)
	}
	m.trails = appendCapped(m.trails, m.session.Positions().Clone(), trailCapacity)
}

func appendCapped[T any](s []T, v T, capacity int) []T {
	s = append(s, v)
	if len(s) > capacity {
		s = append(s[:0], s[len(s)-capacity:]...)
	}
	return s
}

// Voltage is the running mean drift speed over the recent history.
func (m *Model) Voltage() float64 {
	if len(m.velocity) == 0 {
		return 0
	}
	var sum dynamo.Vec
	for _, v := range m.velocity {
		sum = sum.Add(v)
	}
	return sum.Scale(1 / float64(len(m.velocity))).Norm()
}

func (m *Model) draw() {
	m.vortices.Clear()
	for _, p := range m.session.Positions() {
		x, y := m.proj.Point(p)
		m.vortices.FillBlock(x-1, y-1, 2)
	}
}

// render merges both layers, colouring cells that hold a vortex.
func (m *Model) render() string {
	site := lipgloss.NewStyle().Foreground(m.theme.Sites)
	vortex := lipgloss.NewStyle().Foreground(m.theme.Vortices)
	var b strings.Builder
	for row := range m.sites.Grid {
		for col := range m.sites.Grid[row] {
			s, v := m.sites.Grid[row][col], m.vortices.Grid[row][col]
			switch {
			case v != blank:
				b.WriteString(vortex.Render(string(s | v)))
			case s != blank:
				b.WriteString(site.Render(string(s)))
			default:
				b.WriteRune(blank)
			}
		}
		b.WriteByte('\n')
	}
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(m.theme.Border).Render(strings.TrimRight(b.String(), "\n"))
}

// save writes the current configuration and recent trails as an SVG.
func (m *Model) save() {
	l := m.landscape
	var trails []dynamo.Positions
	if len(m.trails) > 0 {
		n := len(m.trails[0])
		trails = make([]dynamo.Positions, n)
		for _, frame := range m.trails {
			for i := 0; i < n && i < len(frame); i++ {
				trails[i] = append(trails[i], frame[i])
			}
		}
	}
	name := fmt.Sprintf("live_%s_J%.2f_step%d.svg", l.Topology, m.session.Current(), m.session.Steps())
	path := filepath.Join(m.opts.SaveDir, name)
	if err := export.WriteFile(path, export.SnapshotSVG(l, m.session.Positions(), trails, 600)); err != nil {
		m.notice = "save failed: " + err.Error()
		return
	}
	m.notice = "saved " + path
}

func (m *Model) View() string {
	var s strings.Builder
	s.WriteString(Title.Render(strings.ToUpper(m.landscape.Topology.Label())) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(StatusFailed.Render("FAILED") + "\n")
	case m.running:
		s.WriteString(StatusRunning.Render("RUNNING") + "\n")
	default:
		s.WriteString(StatusPaused.Render("PAUSED") + "\n")
	}

	if len(m.parallel) > 1 {
		chart := asciigraph.Plot(m.parallel, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("drift along J"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}
	row("Current", fmt.Sprintf("%.3f", m.session.Current()))
	row("Voltage", fmt.Sprintf("%.4f", m.Voltage()))
	row("Pinned", fmt.Sprintf("%.0f%%", 100*m.session.PinnedFraction()))
	row("Time", fmt.Sprintf("%.2f", m.session.Time()))
	row("Step", fmt.Sprintf("%d", m.session.Steps()))
	row("Sites", fmt.Sprintf("%d", m.landscape.Len()))
	row("Vortices", fmt.Sprintf("%d", len(m.session.Positions())))
	row("Theme", m.theme.Name)

	if m.err != nil {
		s.WriteString("\n" + StatusFailed.Render(wrap(m.err.Error(), 38)) + "\n")
	}
	if m.notice != "" {
		s.WriteString("\n" + Subtle.Render(wrap(m.notice, 38)) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause  ↑↓:Current  Tab:Topology\nR:Reset  T:Theme  S:Save  ?:Help  Q:Quit"))

	view := lipgloss.JoinHorizontal(lipgloss.Top, canvasStyle.Render(m.render()), statsStyle.Render(s.String()))
	if m.showHelp {
		return KeyHint.Render(helpText) + "\n\n" + view
	}
	return view
}

const helpText = `Space    pause or resume
Up/K     raise the current
Down/J   lower the current
Tab      next pinning topology
R        restart from the initial layout
T        cycle colour themes
S        save an SVG snapshot with trails
Q        quit`

func wrap(s string, width int) string {
	if len(s) <= width {
		return s
	}
	var b strings.Builder
	for len(s) > width {
		cut := strings.LastIndex(s[:width+1], " ")
		if cut <= 0 {
			cut = width
		}
		b.WriteString(strings.TrimSpace(s[:cut]) + "\n")
		s = strings.TrimSpace(s[cut:])
	}
	b.WriteString(s)
	return b.String()
}

// Run blocks until the user quits the live view.
func Run(open Opener, opts LiveOptions) error {
	m, err := NewModel(open, opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
