package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/mawry/graupel/internal/math3"
	"github.com/mawry/graupel/internal/metrics"
	"github.com/mawry/graupel/internal/mpm"
	"github.com/mawry/graupel/internal/particle"
)

const (
	canvasWidth     = 64
	canvasHeight    = 20
	historyCapacity = 600
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(38)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Plane selects the projection axis pair for the particle view.
type Plane int

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneZY
)

func (p Plane) String() string {
	switch p {
	case PlaneXY:
		return "x/y"
	case PlaneXZ:
		return "x/z"
	case PlaneZY:
		return "z/y"
	}
	return "?"
}

// Model is the bubbletea state for the live view.
type Model struct {
	sim      *mpm.Simulation
	scenario string
	frameDt  float64
	ms       []metrics.Metric

	canvas        *Canvas
	plane         Plane
	running       bool
	frame         int
	err           error
	energyHistory []float64
	showHelp      bool
}

func NewModel(sim *mpm.Simulation, scenario string, frameDt float64, ms []metrics.Metric) Model {
	return Model{
		sim:           sim,
		scenario:      scenario,
		frameDt:       frameDt,
		ms:            ms,
		canvas:        NewCanvas(canvasWidth, canvasHeight),
		running:       true,
		energyHistory: make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "p":
			m.plane = (m.plane + 1) % 3
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.step()
		}
		m.draw()
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	if err := m.sim.AdvanceFrame(context.Background(), m.frameDt); err != nil {
		m.err = err
		m.running = false
		return
	}
	m.frame++
	for _, metric := range m.ms {
		metric.Observe(m.sim)
	}
	m.energyHistory = append(m.energyHistory, m.sim.KineticEnergy())
	if len(m.energyHistory) > historyCapacity {
		m.energyHistory = m.energyHistory[1:]
	}
}

func (m *Model) draw() {
	m.canvas.Clear()
	res := m.sim.Grid().Res()
	pts := particle.RenderPoints(m.sim.Particles(), m.sim.Tick(), m.frameDt)
	for _, pt := range pts {
		h, v, hres, vres := m.project(pt.Pos, res)
		x := int(h / hres * float64(canvasWidth*2))
		y := int((1 - v/vres) * float64(canvasHeight*4))
		m.canvas.Set(x, y)
	}
}

func (m *Model) project(pos math3.Vec3, res [3]int) (h, v, hres, vres float64) {
	switch m.plane {
	case PlaneXZ:
		return pos.X, pos.Z, float64(res[0]), float64(res[2])
	case PlaneZY:
		return pos.Z, pos.Y, float64(res[2]), float64(res[1])
	default:
		return pos.X, pos.Y, float64(res[0]), float64(res[1])
	}
}

func (m Model) View() string {
	var stats strings.Builder
	stats.WriteString(headerStyle.Render(m.scenario) + "\n")
	row := func(label, value string) {
		stats.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("time", fmt.Sprintf("%.4f s", m.sim.Time()))
	row("tick", fmt.Sprintf("%d", m.sim.Tick()))
	row("frame", fmt.Sprintf("%d", m.frame))
	row("particles", fmt.Sprintf("%d", len(m.sim.Particles())))
	row("substeps", fmt.Sprintf("%d", m.sim.Substeps()))
	row("plane", m.plane.String())
	for _, metric := range m.ms {
		row(metric.Name(), fmt.Sprintf("%.4g", metric.Value()))
	}
	if m.err != nil {
		stats.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	} else if !m.running {
		stats.WriteString("\n" + valueStyle.Render("paused") + "\n")
	}

	main := lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(m.canvas.String()),
		statsStyle.Render(stats.String()),
	)

	graph := ""
	if len(m.energyHistory) > 1 {
		graph = graphStyle.Render(asciigraph.Plot(m.energyHistory,
			asciigraph.Height(6),
			asciigraph.Width(canvasWidth+30),
			asciigraph.Caption("kinetic energy"),
		))
	}

	help := helpStyle.Render("space pause · p plane · q quit")
	if m.showHelp {
		help = helpStyle.Render("space pause/resume · p cycle projection plane · ? hide help · q quit")
	}

	return lipgloss.JoinVertical(lipgloss.Left, main, graph, help)
}

// Run blocks until the user quits the live view.
func Run(sim *mpm.Simulation, scenario string, frameDt float64, ms []metrics.Metric) error {
	p := tea.NewProgram(NewModel(sim, scenario, frameDt, ms))
	_, err := p.Run()
	return err
}
