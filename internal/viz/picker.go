package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Choice is a system and one of its presets.
type Choice struct {
	System string
	Preset string
}

// Picker is a menu of system presets. After the program exits, Chosen
// reports the selection; quitting selects nothing.
type Picker struct {
	choices []Choice
	info    map[string]string
	cursor  int
	chosen  *Choice
	styles  Styles
}

// NewPicker lists the presets of every system. describe, when not nil,
// supplies a one-line description shown next to each system.
func NewPicker(systems []string, presets func(system string) []string, describe func(system string) string) Picker {
	p := Picker{info: make(map[string]string), styles: NewStyles(Themes[0])}
	for _, s := range systems {
		for _, name := range presets(s) {
			p.choices = append(p.choices, Choice{System: s, Preset: name})
		}
		if describe != nil {
			p.info[s] = describe(s)
		}
	}
	return p
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.choices)-1 {
			p.cursor++
		}
	case "enter", " ":
		if len(p.choices) > 0 {
			c := p.choices[p.cursor]
			p.chosen = &c
		}
		return p, tea.Quit
	}
	return p, nil
}

func (p Picker) Chosen() (Choice, bool) {
	if p.chosen == nil {
		return Choice{}, false
	}
	return *p.chosen, true
}

func (p Picker) View() string {
	var b strings.Builder
	b.WriteString(p.styles.Header.Render("MDSIM PRESETS") + "\n")
	system := ""
	for i, c := range p.choices {
		if c.System != system {
			system = c.System
			b.WriteString("\n" + p.styles.Label.Render(system) + " " + p.info[system] + "\n")
		}
		line := fmt.Sprintf("  %s/%s", c.System, c.Preset)
		if i == p.cursor {
			b.WriteString(p.styles.Active.Render("> "+line[2:]) + "\n")
		} else {
			b.WriteString(line + "\n")
		}
	}
	b.WriteString(p.styles.Help.Render("\n↑↓:Move Enter:Run Q:Quit"))
	return b.String()
}

// Pick runs the picker full screen and returns the selection.
func Pick(p Picker) (Choice, bool, error) {
	final, err := tea.NewProgram(p, tea.WithAltScreen()).Run()
	if err != nil {
		return Choice{}, false, err
	}
	c, ok := final.(Picker).Chosen()
	return c, ok, nil
}
