package memory

import (
	"sync"
	"time"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/bnema/galho-seco-gateway/internal/ports"
)

// Animator stands in for the dice animation module. Each animated roll
// completes after a fixed delay and wakes every listener registered at
// that moment.
type Animator struct {
	mu        sync.Mutex
	active    bool
	delay     time.Duration
	listeners map[int]chan domain.AnimationCompletion
	next      int
}

var _ ports.DiceAnimator = (*Animator)(nil)

func NewAnimator(active bool, delay time.Duration) *Animator {
	return &Animator{
		active:    active,
		delay:     delay,
		listeners: map[int]chan domain.AnimationCompletion{},
	}
}

func (a *Animator) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *Animator) SetActive(active bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = active
}

func (a *Animator) NextCompletion() (<-chan domain.AnimationCompletion, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.next
	a.next++
	ch := make(chan domain.AnimationCompletion, 1)
	a.listeners[id] = ch

	release := func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.listeners, id)
	}

	return ch, release
}

// animate schedules the completion of messageID's animation. It does
// nothing while the module is disabled.
func (a *Animator) animate(messageID string) {
	if !a.Active() {
		return
	}

	time.AfterFunc(a.delay, func() {
		a.complete(domain.AnimationCompletion{MessageID: messageID})
	})
}

func (a *Animator) complete(completion domain.AnimationCompletion) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id, ch := range a.listeners {
		ch <- completion
		delete(a.listeners, id)
	}
}
