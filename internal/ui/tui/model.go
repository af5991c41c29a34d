package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type stepStatus int

const (
	statusPending stepStatus = iota
	statusActive
	statusDone
	statusWarned
	statusFailed
)

// StepRow is one pipeline step on the dashboard.
type StepRow struct {
	Name    string
	Status  stepStatus
	Outcome string
	// Lines are the most recent resource lines of the step.
	Lines []string
}

// maxLines bounds the resource lines kept per step.
const maxLines = 3

// Model is the Bubble Tea model for the install dashboard.
type Model struct {
	App    string
	Domain string

	Steps    []StepRow
	Warnings []string
	Remedy   string

	StartTime    time.Time
	SpinnerFrame int

	Width  int
	Height int
	Err    error
	Done   bool
	// Quit is set when the user left before the run finished.
	Quit bool
}

// NewInstallModel creates a model listing steps in pipeline order.
func NewInstallModel(app, domain string, steps []string) Model {
	rows := make([]StepRow, len(steps))
	for i, s := range steps {
		rows[i] = StepRow{Name: s}
	}
	return Model{App: app, Domain: domain, Steps: rows, StartTime: time.Now()}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Quit = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case StepStartedMsg:
		if row := m.row(msg.Step); row != nil {
			row.Status = statusActive
		}

	case ResourceMsg:
		if row := m.row(msg.Step); row != nil {
			row.Lines = append(row.Lines, msg.Line)
			if len(row.Lines) > maxLines {
				row.Lines = row.Lines[len(row.Lines)-maxLines:]
			}
		}

	case StepDoneMsg:
		if row := m.row(msg.Step); row != nil {
			row.Status = statusDone
			row.Outcome = msg.Outcome
		}

	case StepWarningMsg:
		if row := m.row(msg.Step); row != nil {
			row.Status = statusWarned
			row.Outcome = "warned"
		}
		m.Warnings = append(m.Warnings, msg.Step+": "+msg.Message)

	case StepFailedMsg:
		if row := m.row(msg.Step); row != nil {
			row.Status = statusFailed
			row.Outcome = msg.Message
		}
		m.Remedy = msg.Remedy

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) row(name string) *StepRow {
	for i := range m.Steps {
		if m.Steps[i].Name == name {
			return &m.Steps[i]
		}
	}
	return nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
