package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type pushDoneMsg struct {
	err error
}

type pushSpinnerModel struct {
	spinner spinner.Model
	label   string
	push    tea.Cmd
	err     error
	done    bool
}

func newPushSpinnerModel(label string, push tea.Cmd) pushSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return pushSpinnerModel{
		spinner: s,
		label:   label,
		push:    push,
	}
}

func (m pushSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.push)
}

func (m pushSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case pushDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m pushSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runPushSpinner shows a spinner on output while push runs and returns the
// push error.
func runPushSpinner(ctx context.Context, output io.Writer, label string, push func(context.Context) error) error {
	pushCmd := func() tea.Msg {
		return pushDoneMsg{err: push(ctx)}
	}

	p := tea.NewProgram(
		newPushSpinnerModel(label, pushCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(pushSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
