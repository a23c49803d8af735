// Package dataset loads and validates per-property clean datasets from
// the blob store, with an optional Redis read-through cache in front of
// slow backends.
package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/scoutwatch/scout/internal/blob"
	"github.com/scoutwatch/scout/internal/domain"
)

// Load failure reasons recorded in the run summary.
const (
	ReasonNotFound         = "not_found"
	ReasonMalformed        = "malformed"
	ReasonInsufficientData = "insufficient_data"
	ReasonStoreError       = "store_error"
)

// LoadError scopes a dataset failure to one property; the run skips the
// property and continues.
type LoadError struct {
	PropertyID string
	Reason     string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.PropertyID, e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader fetches, decodes and validates clean datasets.
type Loader struct {
	store   blob.Store
	cache   *Cache
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewLoader creates a loader. cache may be nil; ratePerSec <= 0 means
// unthrottled reads.
func NewLoader(store blob.Store, cache *Cache, ratePerSec float64) *Loader {
	var limiter *rate.Limiter
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), int(ratePerSec)+1)
	}
	return &Loader{
		store:   store,
		cache:   cache,
		limiter: limiter,
		logger:  log.With().Str("component", "dataset").Logger(),
	}
}

// Load returns the immutable dataset for (property, reference date).
// minDays is the longest detector window the run will ask of the data;
// a dataset spanning less history is rejected as insufficient_data
// (zero disables the check). All failures come back as *LoadError so
// the orchestrator can record a reason code per property.
func (l *Loader) Load(ctx context.Context, propertyID string, referenceDate domain.Day, minDays int) (*domain.CleanDataset, error) {
	key := DatasetKey(propertyID, referenceDate)

	if data, ok := l.cache.Get(ctx, key); ok {
		ds, err := Decode(data)
		if err == nil {
			if err := checkSpan(propertyID, ds, minDays); err != nil {
				return nil, err
			}
			return ds, nil
		}
		// A poisoned cache entry falls through to the store.
		l.logger.Warn().Str("property", propertyID).Err(err).Msg("discarding bad cache entry")
	}

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, &LoadError{PropertyID: propertyID, Reason: ReasonStoreError, Err: err}
		}
	}

	data, err := l.store.Get(ctx, key)
	if err != nil {
		reason := ReasonStoreError
		if errors.Is(err, blob.ErrNotFound) {
			reason = ReasonNotFound
		}
		return nil, &LoadError{PropertyID: propertyID, Reason: reason, Err: err}
	}

	ds, err := Decode(data)
	if err != nil {
		return nil, &LoadError{PropertyID: propertyID, Reason: ReasonMalformed, Err: err}
	}
	if ds.PropertyID != propertyID {
		return nil, &LoadError{
			PropertyID: propertyID,
			Reason:     ReasonMalformed,
			Err:        fmt.Errorf("dataset property_id %q does not match %q", ds.PropertyID, propertyID),
		}
	}
	if err := checkSpan(propertyID, ds, minDays); err != nil {
		return nil, err
	}

	l.cache.Set(ctx, key, data)
	return ds, nil
}

// checkSpan rejects datasets whose history cannot cover the longest
// requested detector window.
func checkSpan(propertyID string, ds *domain.CleanDataset, minDays int) error {
	if minDays <= 0 {
		return nil
	}
	if span := ds.SpanDays(); span < minDays {
		return &LoadError{
			PropertyID: propertyID,
			Reason:     ReasonInsufficientData,
			Err:        fmt.Errorf("dataset spans %d days, longest detector window needs %d", span, minDays),
		}
	}
	return nil
}
