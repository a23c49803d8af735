package blob

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BreakerStore wraps a Store with circuit breakers so a misbehaving
// backend fails fast instead of stalling every worker on the pool.
// Reads and writes break independently: a run of missing datasets must
// never block artifact writes, and a full results volume must never
// block dataset reads.
type BreakerStore struct {
	inner Store
	read  *gobreaker.CircuitBreaker
	write *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps inner with named read and write breakers. A
// breaker opens after 5 consecutive backend failures and probes again
// after 30 seconds. ErrNotFound is a valid answer from a healthy
// store, not a failure.
func NewBreakerStore(name string, inner Store) *BreakerStore {
	return &BreakerStore{
		inner: inner,
		read:  newBreaker(name + "-read"),
		write: newBreaker(name + "-write"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("component", "blob").
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("blob store breaker state change")
		},
	})
}

func (s *BreakerStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.read.Execute(func() (interface{}, error) {
		return s.inner.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (s *BreakerStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.write.Execute(func() (interface{}, error) {
		return nil, s.inner.Put(ctx, key, data)
	})
	return err
}

func (s *BreakerStore) List(ctx context.Context, prefix string) ([]string, error) {
	result, err := s.read.Execute(func() (interface{}, error) {
		return s.inner.List(ctx, prefix)
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}
