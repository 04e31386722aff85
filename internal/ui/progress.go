// Package ui renders compile progress for the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"sysc/internal/driver"
)

// stages gives each driver stage its row label and how far through a file
// the stage starts.
var stages = map[driver.Stage]struct {
	label  string
	weight float64
}{
	driver.StageLoad:     {"loading", 0.1},
	driver.StageLower:    {"lowering", 0.3},
	driver.StageOptimize: {"optimizing", 0.6},
	driver.StageAnalyze:  {"analyzing", 0.9},
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	queuedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

const statusWidth = 12

type fileItem struct {
	path   string
	stage  driver.Stage
	status driver.Status
	err    string
}

func (it fileItem) finished() bool {
	return it.status == driver.StatusDone || it.status == driver.StatusError
}

func (it fileItem) label() string {
	switch it.status {
	case driver.StatusDone:
		return "done"
	case driver.StatusError:
		return "error"
	case driver.StatusWorking:
		return stages[it.stage].label
	}
	return "queued"
}

func (it fileItem) style() lipgloss.Style {
	switch it.status {
	case driver.StatusDone:
		return doneStyle
	case driver.StatusError:
		return errorStyle
	case driver.StatusWorking:
		return workingStyle
	}
	return queuedStyle
}

// fraction is how far through its stages the file is.
func (it fileItem) fraction() float64 {
	if it.finished() {
		return 1
	}
	return stages[it.stage].weight
}

type progressModel struct {
	title   string
	events  <-chan driver.Event
	spinner spinner.Model
	bar     progress.Model
	items   []fileItem
	index   map[string]int
	current driver.Stage // stage of the latest working event
	width   int
	done    bool
}

type eventMsg driver.Event

type closedMsg struct{}

// NewProgressModel returns a Bubble Tea model with one row per file. It
// follows events until the channel is closed, then quits.
func NewProgressModel(title string, files []string, events <-chan driver.Event) tea.Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(workingStyle))
	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(76)),
		items:   make([]fileItem, len(files)),
		index:   make(map[string]int, len(files)),
		width:   80,
	}
	for i, f := range files {
		m.items[i] = fileItem{path: f, status: driver.StatusQueued}
		m.index[f] = i
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		if ev, ok := <-m.events; ok {
			return eventMsg(ev)
		}
		return closedMsg{}
	}
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(driver.Event(msg)), m.next())
	case closedMsg:
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
			m.bar.Width = msg.Width - 4
		}
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) apply(ev driver.Event) tea.Cmd {
	i, ok := m.index[ev.File]
	if !ok {
		return nil
	}
	it := &m.items[i]
	it.status = ev.Status
	if ev.Stage != "" {
		it.stage = ev.Stage
		m.current = ev.Stage
	}
	if ev.Err != nil {
		it.err = ev.Err.Error()
	}
	return m.bar.SetPercent(m.percent())
}

// percent is the mean progress over all files.
func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	sum := 0.0
	for _, it := range m.items {
		sum += it.fraction()
	}
	return sum / float64(len(m.items))
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	header := m.title
	if label := stages[m.current].label; label != "" {
		header += " (" + label + ")"
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header) + "\n\n")
	nameWidth := max(m.width-statusWidth-4, 20)
	finished, failed := 0, 0
	for _, it := range m.items {
		fmt.Fprintf(&b, "  %s %s\n", it.style().Render(fmt.Sprintf("%*s", statusWidth, it.label())), truncate(it.path, nameWidth))
		if it.err != "" {
			fmt.Fprintf(&b, "%s%s\n", strings.Repeat(" ", statusWidth+3), errorStyle.Render(truncate(it.err, nameWidth)))
			failed++
		}
		if it.finished() {
			finished++
		}
	}
	fmt.Fprintf(&b, "\n  %d/%d files", finished, len(m.items))
	if failed > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf(", %d failed", failed)))
	}
	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	return b.String() + "\n"
}

// truncate shortens value to width display columns, marking the cut.
func truncate(value string, width int) string {
	switch {
	case width <= 0 || runewidth.StringWidth(value) <= width:
		return value
	case width <= 3:
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
