package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stepbox/engine"
)

var (
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7dc4e4"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#fff"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#833"))
	soloStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#cc3"))
	cursorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#444"))
	playheadStyle = lipgloss.NewStyle().Reverse(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
)

type Model struct {
	Seq         *engine.Sequencer
	PatternsDir string

	cursorTrack int
	cursorStep  int
	statusMsg   string
	quitting    bool
}

// UpdateMsg is sent whenever the sequencer state changed (tick or edit).
type UpdateMsg struct{}

func NewModel(seq *engine.Sequencer, patternsDir string) Model {
	return Model{Seq: seq, PatternsDir: patternsDir}
}

// ListenForUpdates relays sequencer notifications into the tea loop.
func ListenForUpdates(seq *engine.Sequencer) tea.Cmd {
	return func() tea.Msg {
		<-seq.Updates()
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Seq)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case UpdateMsg:
		return m, ListenForUpdates(m.Seq)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pattern, loaded := m.Seq.Pattern()

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.Seq.Destroy()
		return m, tea.Quit

	case "p":
		if m.Seq.Status() == engine.StatusPlaying {
			m.Seq.Pause()
		} else {
			m.Seq.Play()
		}

	case "x":
		m.Seq.Stop()

	case "+", "=":
		m.Seq.SetTempo(m.Seq.Tempo() + 5)

	case "-", "_":
		m.Seq.SetTempo(m.Seq.Tempo() - 5)

	case "h", "left":
		if m.cursorStep > 0 {
			m.cursorStep--
		}

	case "l", "right":
		if loaded && m.cursorStep < pattern.Length-1 {
			m.cursorStep++
		}

	case "k", "up":
		if m.cursorTrack > 0 {
			m.cursorTrack--
		}

	case "j", "down":
		if loaded && m.cursorTrack < len(pattern.Tracks)-1 {
			m.cursorTrack++
		}

	case " ":
		if t, ok := m.trackUnderCursor(pattern, loaded); ok {
			m.Seq.ToggleStep(t.ID, m.cursorStep)
		}

	case "m":
		if t, ok := m.trackUnderCursor(pattern, loaded); ok {
			m.Seq.ToggleMute(t.ID)
		}

	case "s":
		if t, ok := m.trackUnderCursor(pattern, loaded); ok {
			m.Seq.ToggleSolo(t.ID)
		}

	case "<", ",":
		if t, ok := m.trackUnderCursor(pattern, loaded); ok {
			m.Seq.SetStepVelocity(t.ID, m.cursorStep, t.Steps[m.cursorStep].Velocity-0.1)
		}

	case ">", ".":
		if t, ok := m.trackUnderCursor(pattern, loaded); ok {
			m.Seq.SetStepVelocity(t.ID, m.cursorStep, t.Steps[m.cursorStep].Velocity+0.1)
		}

	case "[":
		if t, ok := m.trackUnderCursor(pattern, loaded); ok {
			m.Seq.SetTrackVolume(t.ID, t.Volume-0.1)
		}

	case "]":
		if t, ok := m.trackUnderCursor(pattern, loaded); ok {
			m.Seq.SetTrackVolume(t.ID, t.Volume+0.1)
		}

	case "S":
		if loaded {
			path, err := engine.SavePattern(m.PatternsDir, pattern)
			if err != nil {
				m.statusMsg = fmt.Sprintf("save failed: %v", err)
			} else {
				m.statusMsg = "saved " + path
			}
		}

	case "L":
		infos, err := engine.ListPatterns(m.PatternsDir)
		if err != nil || len(infos) == 0 {
			m.statusMsg = "no saved patterns"
			break
		}
		p, err := engine.LoadPattern(infos[0].Path)
		if err != nil {
			m.statusMsg = fmt.Sprintf("load failed: %v", err)
			break
		}
		m.Seq.SetPattern(p)
		m.cursorTrack, m.cursorStep = 0, 0
		m.statusMsg = "loaded " + infos[0].Path
	}

	return m, nil
}

func (m Model) trackUnderCursor(p engine.Pattern, loaded bool) (engine.Track, bool) {
	if !loaded || m.cursorTrack >= len(p.Tracks) {
		return engine.Track{}, false
	}
	t := p.Tracks[m.cursorTrack]
	if m.cursorStep >= len(t.Steps) {
		return engine.Track{}, false
	}
	return t, true
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	pattern, loaded := m.Seq.Pattern()
	step := m.Seq.CurrentStep()
	status := m.Seq.Status()
	tempo := m.Seq.Tempo()

	header := headerStyle.Render(fmt.Sprintf("stepbox  %-7s  %3.0fbpm  step:%02d", strings.ToUpper(status.String()), tempo, step))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")

	if !loaded {
		out.WriteString(dimStyle.Render("  no pattern loaded"))
	} else {
		out.WriteString(m.renderGrid(pattern, step, status))
	}

	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render("hjkl:nav  space:toggle  m:mute  s:solo  <>:velocity  []:volume  p:play/pause  x:stop  +/-:tempo  S:save  L:load  q:quit"))

	if m.statusMsg != "" {
		out.WriteString("\n")
		out.WriteString(statusStyle.Render(m.statusMsg))
	}

	return out.String()
}

func (m Model) renderGrid(p engine.Pattern, playhead int, status engine.Status) string {
	var out strings.Builder
	for ti, t := range p.Tracks {
		label := fmt.Sprintf("  %-8s", truncate(t.Name, 8))
		switch {
		case t.Muted:
			out.WriteString(mutedStyle.Render(label))
		case t.Soloed:
			out.WriteString(soloStyle.Render(label))
		default:
			out.WriteString(activeStyle.Render(label))
		}

		for si := 0; si < p.Length && si < len(t.Steps); si++ {
			cell := "·"
			style := dimStyle
			if t.Steps[si].Active {
				cell = velocityGlyph(t.Steps[si].Velocity)
				style = activeStyle
			}
			switch {
			case status == engine.StatusPlaying && si == playhead:
				style = playheadStyle
			case ti == m.cursorTrack && si == m.cursorStep:
				style = cursorStyle
			}
			out.WriteString(style.Render(cell))
			if si%4 == 3 {
				out.WriteString(" ")
			}
		}

		flags := " "
		if t.Muted {
			flags = "M"
		} else if t.Soloed {
			flags = "S"
		}
		out.WriteString(dimStyle.Render(fmt.Sprintf(" %s vol:%3.0f%%", flags, t.Volume*100)))
		out.WriteString("\n")
	}
	return out.String()
}

func velocityGlyph(v float64) string {
	switch {
	case v >= 0.75:
		return "█"
	case v >= 0.5:
		return "▓"
	case v >= 0.25:
		return "▒"
	default:
		return "░"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
