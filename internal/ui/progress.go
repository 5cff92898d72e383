// Package ui renders live knit progress with Bubble Tea.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"qknit/internal/knitpipeline"
)

type progressModel struct {
	title      string
	events     <-chan knitpipeline.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []segmentItem
	stageLabel string
	width      int
	done       bool
}

type segmentItem struct {
	label  string
	status string
	stage  knitpipeline.Stage
	final  bool
}

type eventMsg knitpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders knit progress.
// Labels name the segments in plan order; events with a negative segment
// index update the job-level stage line instead.
func NewProgressModel(title string, labels []string, events <-chan knitpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]segmentItem, 0, len(labels))
	for _, label := range labels {
		items = append(items, segmentItem{label: label, status: "queued"})
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		ev := knitpipeline.Event(msg)
		cmd := m.applyEvent(ev)
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	nameWidth := m.width - statusWidth - 4
	if nameWidth < 20 {
		nameWidth = 20
	}

	for _, item := range m.items {
		name := truncate(item.label, nameWidth)
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%12s", item.status))
		fmt.Fprintf(&b, "  %s %s\n", statusStyled, name)
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")

	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev knitpipeline.Event) tea.Cmd {
	label := statusLabel(ev.Stage, ev.Status)
	if ev.Segment < 0 || ev.Segment >= len(m.items) {
		if label != "" {
			m.stageLabel = label
		}
		return nil
	}
	item := &m.items[ev.Segment]
	if label != "" {
		item.status = label
		item.stage = ev.Stage
	}
	// Append is the last per-segment stage; its terminal event closes
	// the segment. A failure closes it wherever it happens.
	switch {
	case ev.Status == knitpipeline.StatusFailed:
		item.final = true
	case ev.Stage == knitpipeline.StageAppend &&
		(ev.Status == knitpipeline.StatusDone || ev.Status == knitpipeline.StatusCached):
		item.status = "done"
		item.final = true
	}

	totalProgress := 0.0
	for _, it := range m.items {
		if it.final {
			totalProgress += 1.0
		} else {
			totalProgress += progressFromStage(it.stage)
		}
	}
	pct := totalProgress / float64(len(m.items))
	return m.prog.SetPercent(pct)
}

func progressFromStage(stage knitpipeline.Stage) float64 {
	switch stage {
	case knitpipeline.StageLoad:
		return 0.1
	case knitpipeline.StageRoute:
		return 0.4
	case knitpipeline.StageSwaps:
		return 0.7
	case knitpipeline.StageAppend:
		return 0.9
	default:
		return 0.0
	}
}

func statusLabel(stage knitpipeline.Stage, status knitpipeline.Status) string {
	switch status {
	case knitpipeline.StatusDone:
		return stageDoneLabel(stage)
	case knitpipeline.StatusCached:
		return "cached"
	case knitpipeline.StatusFailed:
		return "error"
	case knitpipeline.StatusStarted:
		return stageLabel(stage)
	default:
		return ""
	}
}

func stageLabel(stage knitpipeline.Stage) string {
	switch stage {
	case knitpipeline.StageLoad:
		return "loading"
	case knitpipeline.StageRoute:
		return "routing"
	case knitpipeline.StageSwaps:
		return "swapping"
	case knitpipeline.StageAppend:
		return "appending"
	case knitpipeline.StageWrite:
		return "writing"
	default:
		return ""
	}
}

func stageDoneLabel(stage knitpipeline.Stage) string {
	switch stage {
	case knitpipeline.StageLoad:
		return "loaded"
	case knitpipeline.StageRoute:
		return "routed"
	case knitpipeline.StageSwaps:
		return "swapped"
	case knitpipeline.StageAppend, knitpipeline.StageWrite:
		return "done"
	default:
		return ""
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done", "cached":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "loading", "routing", "swapping", "appending", "writing":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
