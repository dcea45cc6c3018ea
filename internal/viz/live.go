package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/recorder"
	"github.com/san-kum/mdsim/internal/sim"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 600
)

// Quantity is a traced scalar of the live view.
type Quantity int

const (
	QTotal Quantity = iota
	QPotential
	QKinetic
	QTemperature
	QPressure
	numQuantities
)

var quantityNames = [numQuantities]string{"Total Energy", "Potential", "Kinetic En.", "Temperature", "Pressure (bar)"}

func (q Quantity) String() string { return quantityNames[q] }

// TCState is the display copy of one thermostat group.
type TCState struct {
	Name   string
	T      float64
	Lambda float64
}

// StepMsg carries one committed step to the view. X is nil for steps
// whose positions were not sampled.
type StepMsg struct {
	Step   int
	Time   float64
	Values [numQuantities]float64
	TC     []TCState
	RMSD   float64
	Box    dynamo.Tensor
	X      []dynamo.Vec3
}

// DoneMsg ends the run shown by the view.
type DoneMsg struct {
	Result *sim.Result
	Err    error
}

// Model is the live view of one run.
type Model struct {
	title    string
	steps    int
	theme    Theme
	styles   Styles
	canvas   *Canvas
	camera   *Camera
	traces   [numQuantities][]float64
	quantity Quantity
	last     StepMsg
	x        []dynamo.Vec3
	done     bool
	err      error
	showHelp bool
	cancel   context.CancelFunc
}

// NewModel returns a view of a run of steps steps. cancel is called when
// the user quits before the run ends.
func NewModel(title string, steps int, cancel context.CancelFunc) Model {
	theme := Themes[0]
	return Model{
		title:  title,
		steps:  steps,
		theme:  theme,
		styles: NewStyles(theme),
		canvas: NewCanvas(width, height),
		camera: NewCamera(),
		cancel: cancel,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "tab":
			m.quantity = (m.quantity + 1) % numQuantities
		case "t":
			m.theme = NextTheme(m.theme.Name)
			m.styles = NewStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case tea.WindowSizeMsg:
		w := max(20, msg.Width-56)
		h := max(8, msg.Height-4)
		m.canvas = NewCanvas(w, h)
	case StepMsg:
		m.last = msg
		if msg.X != nil {
			m.x = msg.X
		}
		for q := range m.traces {
			m.traces[q] = append(m.traces[q], msg.Values[q])
			if len(m.traces[q]) > historyCapacity {
				m.traces[q] = m.traces[q][1:]
			}
		}
	case DoneMsg:
		m.done = true
		m.err = msg.Err
	}
	return m, nil
}

// Trace returns the recorded history of q.
func (m Model) Trace(q Quantity) []float64 { return m.traces[q] }

func (m Model) status() string {
	switch {
	case m.err != nil:
		return m.styles.Failed.Render("FAILED: " + m.err.Error())
	case m.done:
		return m.styles.Stopped.Render("FINISHED")
	}
	return m.styles.Running.Render("RUNNING")
}

func (m Model) View() string {
	m.canvas.Clear()
	RenderBox(m.canvas, m.camera, m.last.Box, m.x)
	canvasView := m.styles.Canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(m.styles.Header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")

	frac := 0.0
	if m.steps > 0 {
		frac = float64(m.last.Step) / float64(m.steps)
	}
	s.WriteString(ProgressBar(frac, 30) + fmt.Sprintf(" %d/%d\n", m.last.Step, m.steps))

	if tr := m.traces[m.quantity]; len(tr) > 1 {
		chart := asciigraph.Plot(tr, asciigraph.Height(5), asciigraph.Width(34), asciigraph.Caption(m.quantity.String()))
		s.WriteString(m.styles.Graph.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(m.styles.Label.Render(label) + m.styles.Value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.3f ps", m.last.Time))
	for q := Quantity(0); q < numQuantities; q++ {
		label := q.String()
		if q == m.quantity {
			label = m.styles.Active.Render("> ") + label
		}
		row(label, fmt.Sprintf("%.4g", m.last.Values[q]))
	}
	if m.last.RMSD > 0 {
		row("Constr. RMSD", fmt.Sprintf("%.2e", m.last.RMSD))
	}
	if len(m.last.TC) > 1 {
		s.WriteString("\nGROUPS\n")
		for _, tc := range m.last.TC {
			row(tc.Name, fmt.Sprintf("T %.1f  lambda %.4f", tc.T, tc.Lambda))
		}
	}
	s.WriteString(m.styles.Help.Render("TAB:Trace T:Theme XYZ:Rotate +/-:Zoom ?:Help Q:Quit"))

	main := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, m.styles.Stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + main
	}
	return main
}

const helpText = `
  Tab      cycle the traced quantity
  T        cycle themes
  X Y Z    rotate the box, shift reverses
  + -      zoom
  ?        toggle this help
  Q        stop the run and quit
`

// Feed forwards committed steps to a running program. Positions are
// copied on every sampled step; Every thins the stream.
type Feed struct {
	send  func(tea.Msg)
	every int
	n     int
}

func NewFeed(send func(tea.Msg), every int) *Feed {
	return &Feed{send: send, every: max(every, 1)}
}

func (f *Feed) OnStep(s *sim.StepSample) {
	f.n++
	if f.n%f.every != 0 {
		return
	}
	msg := StepMsg{
		Step: s.Step,
		Time: s.Time,
		RMSD: s.ConstraintRMSD,
		Box:  s.Box,
		X:    append([]dynamo.Vec3(nil), s.X...),
	}
	msg.Values[QTotal] = s.Energy[recorder.TermTotal]
	msg.Values[QPotential] = s.Energy[recorder.TermPotential]
	msg.Values[QKinetic] = s.Energy[recorder.TermKinetic]
	msg.Values[QTemperature] = s.Temperature
	msg.Values[QPressure] = s.Energy[recorder.TermPressure]
	for _, tc := range s.TC {
		msg.TC = append(msg.TC, TCState{Name: tc.Name, T: tc.T, Lambda: tc.Lambda})
	}
	f.send(msg)
}

// RunLive shows run in the terminal until it ends or the user quits.
// run must attach the observer it is given to the simulator.
func RunLive(ctx context.Context, title string, steps, every int,
	run func(ctx context.Context, obs sim.Observer) (*sim.Result, error)) (*sim.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(title, steps, cancel), tea.WithAltScreen(), tea.WithContext(ctx))

	type outcome struct {
		res *sim.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := run(ctx, NewFeed(p.Send, every))
		p.Send(DoneMsg{Result: res, Err: err})
		done <- outcome{res, err}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-done
		return nil, err
	}
	cancel()
	out := <-done
	return out.res, out.err
}
