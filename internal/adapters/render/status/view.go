package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/galho-seco-gateway/internal/application"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	ServerAddress string
	Interval      time.Duration
	WorldTitle    string
}

// headerLines renders the title, the server summary and, when relevant, the
// missing-address warning and the empty-list notice.
func headerLines(accounts int, opts RenderOptions, s styles) []string {
	title := "Galho Seco Sync"
	if strings.TrimSpace(opts.WorldTitle) != "" {
		title += ": " + strings.TrimSpace(opts.WorldTitle)
	}

	lines := []string{
		s.title.Render(title),
		s.header.Render(headerLine(accounts, opts)),
	}
	if strings.TrimSpace(opts.ServerAddress) == "" {
		lines = append(lines, s.warning.Render("server address not configured, nothing will sync"))
	}
	if accounts == 0 {
		lines = append(lines, s.empty.Render("No linked accounts configured."))
	}

	return lines
}

func headerLine(accounts int, opts RenderOptions) string {
	server := strings.TrimSpace(opts.ServerAddress)
	if server == "" {
		server = "n/a"
	}

	line := fmt.Sprintf("server: %s  accounts: %d", server, accounts)
	if opts.Interval > 0 {
		line += "  sweep: every " + formatInterval(opts.Interval)
	}

	return line
}

func renderAccount(status application.AccountStatus, s styles) string {
	parts := []string{
		s.account.Render(accountTitle(status)),
		keyLine(status, s),
	}

	if len(status.Characters) == 0 {
		parts = append(parts, s.empty.Render("characters: none owned"))
	} else {
		names := make([]string, 0, len(status.Characters))
		for _, name := range status.Characters {
			names = append(names, s.character.Render(name))
		}
		parts = append(parts, s.detail.Render(fmt.Sprintf("characters (%d): ", len(status.Characters)))+strings.Join(names, ", "))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func keyLine(status application.AccountStatus, s styles) string {
	if !status.HasKey {
		return s.warning.Render("api key: missing [not synced]")
	}
	if status.User == "" {
		return s.warning.Render("api key: set [no matching user]")
	}

	return s.ok.Render("api key: set")
}

func accountTitle(status application.AccountStatus) string {
	user := strings.TrimSpace(status.User)
	if user == "" {
		return string(status.ID)
	}

	return fmt.Sprintf("%s (%s)", user, status.ID)
}

func formatInterval(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Round(time.Second)/time.Second))
	}
	if d%time.Minute == 0 {
		minutes := int(d / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}

	return d.Round(time.Second).String()
}
