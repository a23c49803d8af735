package blob

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails selected operations and counts every call that
// reaches it.
type flakyStore struct {
	getErr  error
	putErr  error
	gets    int
	puts    int
	payload []byte
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.payload, nil
}

func (s *flakyStore) Put(ctx context.Context, key string, data []byte) error {
	s.puts++
	return s.putErr
}

func (s *flakyStore) List(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}

func TestBreakerMissingKeysDoNotOpenIt(t *testing.T) {
	inner := &flakyStore{getErr: fmt.Errorf("wrap: %w", ErrNotFound)}
	store := NewBreakerStore("test", inner)
	ctx := context.Background()

	// Far past the consecutive-failure threshold: a roster full of
	// properties without datasets is a data condition, not an outage.
	for i := 0; i < 20; i++ {
		_, err := store.Get(ctx, fmt.Sprintf("clean_dataset/%d/2026-08-22.json", i))
		require.True(t, errors.Is(err, ErrNotFound))
	}

	inner.getErr = nil
	inner.payload = []byte("{}")
	data, err := store.Get(ctx, "clean_dataset/999999/2026-08-22.json")
	require.NoError(t, err, "breaker must still pass healthy reads through")
	assert.Equal(t, "{}", string(data))
	assert.Equal(t, 21, inner.gets, "every call reached the backend")
}

func TestBreakerOpensOnBackendFailures(t *testing.T) {
	inner := &flakyStore{getErr: errors.New("i/o timeout")}
	store := NewBreakerStore("test", inner)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Get(ctx, "k")
		require.Error(t, err)
	}
	assert.Equal(t, 5, inner.gets)

	_, err := store.Get(ctx, "k")
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 5, inner.gets, "open breaker short-circuits the backend")
}

func TestBreakerReadsAndWritesBreakIndependently(t *testing.T) {
	inner := &flakyStore{getErr: errors.New("i/o timeout"), payload: []byte("{}")}
	store := NewBreakerStore("test", inner)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, _ = store.Get(ctx, "k")
	}
	_, err := store.Get(ctx, "k")
	require.True(t, errors.Is(err, gobreaker.ErrOpenState))

	// Artifact writes keep flowing while the read path is open.
	require.NoError(t, store.Put(ctx, "results/2026-08-22/digest.json", []byte("{}")))
	assert.Equal(t, 1, inner.puts)
}
