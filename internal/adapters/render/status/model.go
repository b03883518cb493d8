package status

import (
	"errors"
	"fmt"
	"io"

	"github.com/bnema/galho-seco-gateway/internal/application"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrBoardIncomplete is returned when the program stops before every
// account section was drawn.
var ErrBoardIncomplete = errors.New("status board stopped before all accounts were drawn")

type headerDrawnMsg struct{}

type accountDrawnMsg struct {
	section string
}

// board draws the header first and then one section per linked account.
type board struct {
	pending []application.AccountStatus
	total   int
	opts    RenderOptions
	styles  styles
	lines   []string
	drawn   bool
}

func newBoard(statuses []application.AccountStatus, opts RenderOptions) board {
	return board{
		pending: statuses,
		total:   len(statuses),
		opts:    opts,
		styles:  newStyles(),
	}
}

func (b board) Init() tea.Cmd {
	return func() tea.Msg { return headerDrawnMsg{} }
}

func (b board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case headerDrawnMsg:
		b.lines = headerLines(b.total, b.opts, b.styles)
	case accountDrawnMsg:
		b.lines = append(b.lines, msg.section)
		b.pending = b.pending[1:]
	default:
		return b, nil
	}

	if len(b.pending) == 0 {
		b.drawn = true
		return b, tea.Quit
	}
	return b, b.drawNext()
}

func (b board) drawNext() tea.Cmd {
	next := b.pending[0]
	s := b.styles
	return func() tea.Msg {
		return accountDrawnMsg{section: s.section.Render(renderAccount(next, s))}
	}
}

func (b board) View() string {
	return lipgloss.JoinVertical(lipgloss.Left, b.lines...)
}

// Render draws the sync status of every linked account.
func Render(statuses []application.AccountStatus, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newBoard(statuses, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("render status board: %w", err)
	}

	drawn, ok := final.(board)
	if !ok || !drawn.drawn {
		return "", ErrBoardIncomplete
	}

	return drawn.View(), nil
}
