package authz

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Decision is the outcome of an access check that may need a backend round
// trip.
type Decision int

const (
	DecisionPending Decision = iota
	DecisionAllowed
	DecisionDenied
)

func (d Decision) String() string {
	switch d {
	case DecisionAllowed:
		return "allowed"
	case DecisionDenied:
		return "denied"
	}
	return "pending"
}

// AccessChecker asks the backend whether the current user may perform action
// on resource.
type AccessChecker interface {
	CheckAccess(ctx context.Context, resource string, action Action) (bool, error)
}

type decisionKey struct {
	resource string
	action   Action
}

// AsyncGate caches backend access decisions. The first Decide for a pair
// starts the check and reports DecisionPending; callers must render a neutral
// placeholder until a later Decide returns the settled answer. Failed checks
// settle as DecisionDenied.
type AsyncGate struct {
	checker    AccessChecker
	timeout    time.Duration
	logger     *zap.Logger
	onResolved func(resource string, action Action, d Decision)

	mu        sync.Mutex
	decisions map[decisionKey]Decision
	// generation invalidates checks started before the last Reset.
	generation uint64
	inflight   sync.WaitGroup
}

// NewAsyncGate builds a gate. onResolved, when not nil, is called once per
// settled check from the checking goroutine.
func NewAsyncGate(checker AccessChecker, timeout time.Duration, logger *zap.Logger, onResolved func(resource string, action Action, d Decision)) *AsyncGate {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AsyncGate{
		checker:    checker,
		timeout:    timeout,
		logger:     logger,
		onResolved: onResolved,
		decisions:  make(map[decisionKey]Decision),
	}
}

// Decide returns the current decision for resource and action, starting a
// check when none is known yet.
func (g *AsyncGate) Decide(resource string, action Action) Decision {
	key := decisionKey{resource: resource, action: action}

	g.mu.Lock()
	if d, ok := g.decisions[key]; ok {
		g.mu.Unlock()
		return d
	}
	g.decisions[key] = DecisionPending
	gen := g.generation
	g.inflight.Add(1)
	g.mu.Unlock()

	go g.check(key, gen)
	return DecisionPending
}

func (g *AsyncGate) check(key decisionKey, gen uint64) {
	defer g.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	d := DecisionDenied
	allowed, err := g.checker.CheckAccess(ctx, key.resource, key.action)
	switch {
	case err != nil:
		g.logger.Warn("access check failed, denying",
			zap.String("resource", key.resource),
			zap.String("action", string(key.action)),
			zap.Error(err),
		)
	case allowed:
		d = DecisionAllowed
	}

	g.mu.Lock()
	if gen != g.generation {
		g.mu.Unlock()
		return
	}
	g.decisions[key] = d
	g.mu.Unlock()

	if g.onResolved != nil {
		g.onResolved(key.resource, key.action, d)
	}
}

// Reset forgets every decision. Checks still in flight are discarded when they
// settle.
func (g *AsyncGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.generation++
	g.decisions = make(map[decisionKey]Decision)
}

// Wait blocks until every started check has settled.
func (g *AsyncGate) Wait() {
	g.inflight.Wait()
}
