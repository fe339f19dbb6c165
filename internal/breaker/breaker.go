package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrOpen is returned when a call is short-circuited without reaching the
// underlying gateway.
var ErrOpen = errors.New("circuit open")

// State of a circuit.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Settings configure one circuit. FailureThreshold consecutive failures
// within Window open the circuit; after ResetTimeout up to HalfOpenMaxCalls
// trial calls are allowed, and that many successes close it again.
type Settings struct {
	FailureThreshold int
	Window           time.Duration
	ResetTimeout     time.Duration
	HalfOpenMaxCalls int
}

// Breaker is a single circuit protecting one gateway.
type Breaker struct {
	name     string
	settings Settings
	logger   *zap.Logger

	mu            sync.Mutex
	state         State
	failures      int
	windowStart   time.Time
	openedAt      time.Time
	halfOpenCalls int
	halfOpenOK    int
}

func newBreaker(name string, settings Settings, logger *zap.Logger) *Breaker {
	return &Breaker{
		name:     name,
		settings: settings,
		logger:   logger,
		state:    StateClosed,
	}
}

// State returns the current state, accounting for reset-timeout expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.openedAt) >= b.settings.ResetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Do runs fn through the circuit. When the circuit is open it returns ErrOpen
// immediately without invoking fn.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}

	err := fn(ctx)
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()

	switch b.state {
	case StateOpen:
		if now.Sub(b.openedAt) < b.settings.ResetTimeout {
			return ErrOpen
		}
		b.state = StateHalfOpen
		b.halfOpenCalls = 0
		b.halfOpenOK = 0
		b.logger.Info("circuit transitioning to half-open", zap.String("gateway", b.name))
	case StateHalfOpen:
		if b.halfOpenCalls >= b.settings.HalfOpenMaxCalls {
			return ErrOpen
		}
	case StateClosed:
		if !b.windowStart.IsZero() && now.Sub(b.windowStart) > b.settings.Window {
			b.failures = 0
			b.windowStart = time.Time{}
		}
	}

	if b.state == StateHalfOpen {
		b.halfOpenCalls++
	}

	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.recordFailure()
		return
	}
	b.recordSuccess()
}

func (b *Breaker) recordFailure() {
	now := time.Now()

	switch b.state {
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = now
		b.logger.Warn("circuit reopened during half-open trial", zap.String("gateway", b.name))
	case StateClosed:
		if b.windowStart.IsZero() || now.Sub(b.windowStart) > b.settings.Window {
			b.failures = 0
			b.windowStart = now
		}
		b.failures++
		if b.failures >= b.settings.FailureThreshold {
			b.state = StateOpen
			b.openedAt = now
			b.logger.Warn("circuit opened",
				zap.String("gateway", b.name),
				zap.Int("failures", b.failures))
		}
	}
}

func (b *Breaker) recordSuccess() {
	switch b.state {
	case StateHalfOpen:
		b.halfOpenOK++
		if b.halfOpenOK >= b.settings.HalfOpenMaxCalls {
			b.state = StateClosed
			b.failures = 0
			b.windowStart = time.Time{}
			b.logger.Info("circuit closed after recovery", zap.String("gateway", b.name))
		}
	case StateClosed:
		if b.failures > 0 {
			b.failures--
		}
	}
}

// Registry holds one breaker per gateway identifier. It is passed by
// dependency injection so tests and future shared implementations can swap
// it out.
type Registry struct {
	mu        sync.Mutex
	settings  Settings
	overrides map[string]Settings
	breakers  map[string]*Breaker
	logger    *zap.Logger
}

// NewRegistry creates a breaker registry with default settings.
func NewRegistry(settings Settings, logger *zap.Logger) *Registry {
	return &Registry{
		settings:  settings,
		overrides: make(map[string]Settings),
		breakers:  make(map[string]*Breaker),
		logger:    logger,
	}
}

// Configure sets per-gateway settings, replacing any existing breaker.
func (r *Registry) Configure(name string, settings Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[name] = settings
	delete(r.breakers, name)
}

// Get returns the breaker for a gateway, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}

	settings := r.settings
	if override, ok := r.overrides[name]; ok {
		settings = override
	}

	b := newBreaker(name, settings, r.logger)
	r.breakers[name] = b
	return b
}

// Do runs fn through the breaker of the named gateway.
func (r *Registry) Do(ctx context.Context, name string, fn func(context.Context) error) error {
	return r.Get(name).Do(ctx, fn)
}

// States returns a snapshot of all known circuits, for health reporting.
func (r *Registry) States() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[string]string, len(r.breakers))
	for name, b := range r.breakers {
		states[name] = b.State().String()
	}
	return states
}
