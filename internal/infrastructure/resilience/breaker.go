package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrOpen rejects calls while the breaker is open
	ErrOpen = errors.New("resilience: circuit open")
	// ErrTooManyProbes rejects calls beyond the half-open allowance
	ErrTooManyProbes = errors.New("resilience: too many probe requests")
)

// State is a circuit breaker phase
type State string

const (
	Closed   State = "closed"
	Open     State = "open"
	HalfOpen State = "half-open"
)

// Stats counts outcomes within the current generation
type Stats struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Config tunes a breaker. Zero values get sensible defaults.
type Config struct {
	// MaxProbes limits concurrent requests while half-open
	MaxProbes uint32
	// CycleEvery clears closed-state stats periodically
	CycleEvery time.Duration
	// ResetAfter is how long the open state lasts before probing
	ResetAfter time.Duration
	// TripWhen decides, after a closed-state failure, whether to open
	TripWhen func(Stats) bool
	// OnChange observes state transitions
	OnChange func(name string, from, to State)
}

// Breaker guards an operation against a persistently failing
// dependency. Safe for concurrent use.
type Breaker struct {
	name string
	conf Config

	mu         sync.Mutex
	state      State
	generation uint64
	stats      Stats
	expiry     time.Time
}

// New creates a closed breaker
func New(name string, conf Config) *Breaker {
	if conf.MaxProbes == 0 {
		conf.MaxProbes = 1
	}
	if conf.CycleEvery == 0 {
		conf.CycleEvery = 60 * time.Second
	}
	if conf.ResetAfter == 0 {
		conf.ResetAfter = 60 * time.Second
	}
	if conf.TripWhen == nil {
		conf.TripWhen = func(s Stats) bool { return s.ConsecutiveFailures > 5 }
	}
	return &Breaker{
		name:   name,
		conf:   conf,
		state:  Closed,
		expiry: time.Now().Add(conf.CycleEvery),
	}
}

// Name returns the breaker's name
func (b *Breaker) Name() string { return b.name }

// State returns the current phase
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, _ := b.tick(time.Now())
	return state
}

// Stats returns a copy of the current generation's counters
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Do runs fn if the breaker admits it. A panic in fn counts as a
// failure and is re-raised.
func (b *Breaker) Do(fn func() (any, error)) (any, error) {
	generation, err := b.admit()
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			b.settle(generation, false)
			panic(r)
		}
	}()

	result, err := fn()
	b.settle(generation, err == nil)
	return result, err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, generation := b.tick(now)

	if state == Open {
		return generation, ErrOpen
	}
	if state == HalfOpen && b.stats.Requests >= b.conf.MaxProbes {
		return generation, ErrTooManyProbes
	}

	b.stats.Requests++
	return generation, nil
}

// settle records an outcome, unless the generation rolled over while
// the request was in flight
func (b *Breaker) settle(before uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, generation := b.tick(now)
	if generation != before {
		return
	}

	if success {
		b.onSuccess(state, now)
	} else {
		b.onFailure(state, now)
	}
}

func (b *Breaker) onSuccess(state State, now time.Time) {
	switch state {
	case Closed:
		b.stats.TotalSuccesses++
		b.stats.ConsecutiveSuccesses++
		b.stats.ConsecutiveFailures = 0
	case HalfOpen:
		b.stats.TotalSuccesses++
		b.stats.ConsecutiveSuccesses++
		b.stats.ConsecutiveFailures = 0
		if b.stats.ConsecutiveSuccesses >= b.conf.MaxProbes {
			b.transition(Closed, now)
		}
	}
}

func (b *Breaker) onFailure(state State, now time.Time) {
	switch state {
	case Closed:
		b.stats.TotalFailures++
		b.stats.ConsecutiveFailures++
		b.stats.ConsecutiveSuccesses = 0
		if b.conf.TripWhen(b.stats) {
			b.transition(Open, now)
		}
	case HalfOpen:
		b.transition(Open, now)
	}
}

// tick advances time-driven transitions and returns the state plus its
// generation marker. Outcomes from a prior generation are discarded.
func (b *Breaker) tick(now time.Time) (State, uint64) {
	switch b.state {
	case Closed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.generation++
			b.stats = Stats{}
			b.expiry = now.Add(b.conf.CycleEvery)
		}
	case Open:
		if b.expiry.Before(now) {
			b.transition(HalfOpen, now)
		}
	}
	return b.state, b.generation
}

func (b *Breaker) transition(state State, now time.Time) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.generation++
	b.stats = Stats{}

	switch state {
	case Closed:
		b.expiry = now.Add(b.conf.CycleEvery)
	case Open:
		b.expiry = now.Add(b.conf.ResetAfter)
	case HalfOpen:
		b.expiry = time.Time{}
	}

	if b.conf.OnChange != nil {
		b.conf.OnChange(b.name, prev, state)
	}
}
