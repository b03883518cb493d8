package application

import (
	"sync"
	"time"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/bnema/galho-seco-gateway/internal/ports"
)

// Scheduler drives the periodic sweep. Ticks is stable across
// reconfigurations; at most one tick is buffered.
type Scheduler struct {
	clock ports.Clock
	ticks chan time.Time

	mu       sync.Mutex
	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(clock ports.Clock) *Scheduler {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Scheduler{
		clock: clock,
		ticks: make(chan time.Time, 1),
	}
}

func (s *Scheduler) Ticks() <-chan time.Time {
	return s.ticks
}

func (s *Scheduler) Start(settings domain.Settings) {
	s.Reconfigure(settings)
}

// Reconfigure cancels the running timer, discards any tick it left undelivered
// and arms a new one with the settings' interval. Without a server address no
// timer is armed.
func (s *Scheduler) Reconfigure(settings domain.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	if !settings.HasServer() {
		return
	}

	s.interval = settings.SweepInterval()
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.interval, s.stop)
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
}

// Interval returns the armed interval, or zero when no timer is armed.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.interval
}

func (s *Scheduler) stopLocked() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.wg.Wait()
	s.stop = nil
	s.interval = 0

	// a tick from the cancelled timer must not reach the next one
	select {
	case <-s.ticks:
	default:
	}
}

func (s *Scheduler) run(interval time.Duration, stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case s.ticks <- s.clock.Now():
			default:
			}
		}
	}
}
