package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"portfolio-tracker/observability"
)

// ErrProviderUnavailable is returned when a breaker refuses a call.
var ErrProviderUnavailable = errors.New("provider unavailable")

// Breaker names, one per upstream provider.
const (
	BreakerFMP          = "fmp"
	BreakerAlpaca       = "alpaca"
	BreakerAlphaVantage = "alphavantage"
	BreakerNewsAPI      = "newsapi"
	BreakerGemini       = "gemini"
	BreakerOpenAI       = "openai"
	BreakerBedrock      = "bedrock"
)

// CircuitBreakerConfig tunes every breaker created by a registry.
type CircuitBreakerConfig struct {
	MaxRequests uint32        // probes allowed while half-open
	Interval    time.Duration // closed-state count reset period
	Timeout     time.Duration // open-state duration before probing
	MinRequests uint32        // requests needed before the failure ratio counts
	TripRatio   float64
}

var DefaultCircuitBreakerConfig = CircuitBreakerConfig{
	MaxRequests: 3,
	Interval:    time.Minute,
	Timeout:     30 * time.Second,
	MinRequests: 5,
	TripRatio:   0.5,
}

// CircuitBreakerRegistry lazily creates one breaker per provider name.
type CircuitBreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
	config   CircuitBreakerConfig
}

func NewCircuitBreakerRegistry(config CircuitBreakerConfig) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
		config:   config,
	}
}

// Breaker returns the breaker for name, creating it on first use.
func (r *CircuitBreakerRegistry) Breaker(name string) *gobreaker.CircuitBreaker[any] {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok = r.breakers[name]; ok {
		return cb
	}

	cfg := r.config
	cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.TripRatio
		},
		IsSuccessful: func(err error) bool {
			return !isProviderFault(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.WithProvider(name).Warn("circuit breaker state change",
				"from", from.String(),
				"to", to.String())

			metrics := observability.GetMetrics()
			metrics.SetCircuitBreakerState(name, stateToInt(to))
			if to == gobreaker.StateOpen {
				metrics.RecordCircuitBreakerTrip(name)
			}
		},
	})
	r.breakers[name] = cb
	return cb
}

// Execute runs fn through the named breaker.
func (r *CircuitBreakerRegistry) Execute(ctx context.Context, name string, fn func() (any, error)) (any, error) {
	result, err := r.Breaker(name).Execute(func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn()
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		observability.WithProvider(name).Warn("circuit breaker open, rejecting call")
		return nil, fmt.Errorf("%w: %s circuit breaker open", ErrProviderUnavailable, name)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		observability.WithProvider(name).Warn("circuit breaker half-open, too many probes")
		return nil, fmt.Errorf("%w: %s is recovering", ErrProviderUnavailable, name)
	}
	return result, err
}

// CircuitBreakerStatus is the health view of one breaker.
type CircuitBreakerStatus struct {
	Name                 string `json:"name"`
	State                string `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
}

// Status lists every breaker created so far, sorted by name.
func (r *CircuitBreakerRegistry) Status() []CircuitBreakerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CircuitBreakerStatus, 0, len(r.breakers))
	for name, cb := range r.breakers {
		counts := cb.Counts()
		out = append(out, CircuitBreakerStatus{
			Name:                 name,
			State:                cb.State().String(),
			Requests:             counts.Requests,
			TotalFailures:        counts.TotalFailures,
			ConsecutiveFailures:  counts.ConsecutiveFailures,
			ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var (
	globalRegistry *CircuitBreakerRegistry
	registryMu     sync.Mutex
)

// GetGlobalRegistry returns the process-wide registry.
func GetGlobalRegistry() *CircuitBreakerRegistry {
	registryMu.Lock()
	defer registryMu.Unlock()
	if globalRegistry == nil {
		globalRegistry = NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)
	}
	return globalRegistry
}

// SetGlobalRegistry swaps the process-wide registry, mostly for tests.
func SetGlobalRegistry(r *CircuitBreakerRegistry) {
	registryMu.Lock()
	defer registryMu.Unlock()
	globalRegistry = r
}

// WithCircuitBreaker runs fn through the global breaker for name.
func WithCircuitBreaker[T any](ctx context.Context, name string, fn func() (T, error)) (T, error) {
	result, err := GetGlobalRegistry().Execute(ctx, name, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// stateToInt maps closed/half-open/open to 0/1/2 for the state gauge.
func stateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
