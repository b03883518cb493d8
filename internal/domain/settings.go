package domain

import (
	"strings"
	"time"
)

const (
	DefaultUpdateIntervalMinutes = 0.5
	DefaultWorldTitle            = "Galho Seco"
)

type Settings struct {
	ServerAddress string
	// UpdateInterval is the sweep period in minutes.
	UpdateInterval float64
	WorldTitle     string
}

func (s Settings) HasServer() bool {
	return strings.TrimSpace(s.ServerAddress) != ""
}

func (s Settings) SweepInterval() time.Duration {
	minutes := s.UpdateInterval
	if minutes <= 0 {
		minutes = DefaultUpdateIntervalMinutes
	}

	return time.Duration(minutes * float64(time.Minute))
}

func (s Settings) Title() string {
	if strings.TrimSpace(s.WorldTitle) == "" {
		return DefaultWorldTitle
	}

	return s.WorldTitle
}
