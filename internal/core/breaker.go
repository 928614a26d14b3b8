package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// ErrCircuitOpen is returned by BreakerRegistry.Call when a kind's
// breaker is currently tripped.
var ErrCircuitOpen = fmt.Errorf("circuit breaker open")

// BreakerRegistry holds one circuit breaker per RegistryKind, so a
// struggling registry never slows down the others' sweeps.
type BreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[RegistryKind]*circuit.Breaker
}

// NewBreakerRegistry returns an empty registry; breakers are created
// lazily on first use.
func NewBreakerRegistry() *BreakerRegistry {
	return &BreakerRegistry{breakers: make(map[RegistryKind]*circuit.Breaker)}
}

func (b *BreakerRegistry) get(kind RegistryKind) *circuit.Breaker {
	b.mu.RLock()
	breaker, ok := b.breakers[kind]
	b.mu.RUnlock()
	if ok {
		return breaker
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if breaker, ok := b.breakers[kind]; ok {
		return breaker
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})
	b.breakers[kind] = breaker
	return breaker
}

// Call runs fn through the breaker for kind. If the breaker is tripped
// it fails fast with ErrCircuitOpen instead of calling fn.
func (b *BreakerRegistry) Call(kind RegistryKind, fn func() error) error {
	breaker := b.get(kind)
	if !breaker.Ready() {
		return ErrCircuitOpen
	}
	return breaker.Call(fn, 0)
}

// State reports "open"/"closed" per kind, for diagnostics/health checks.
func (b *BreakerRegistry) State() map[RegistryKind]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	states := make(map[RegistryKind]string, len(b.breakers))
	for kind, breaker := range b.breakers {
		if breaker.Tripped() {
			states[kind] = "open"
		} else {
			states[kind] = "closed"
		}
	}
	return states
}
