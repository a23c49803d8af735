package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutwatch/scout/internal/blob"
	"github.com/scoutwatch/scout/internal/domain"
)

func storeWith(t *testing.T, payload string) blob.Store {
	t.Helper()
	store, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), Key, []byte(payload)))
	return store
}

func TestLoadFiltersUnconfigured(t *testing.T) {
	store := storeWith(t, `{
		"properties": [
			{"property_id": "314159", "client_name": "Acme", "domain": "https://www.acme.example/", "conversion_events": "purchase, sign_up", "is_configured": true},
			{"property_id": "271828", "client_name": "Unset", "is_configured": false}
		]
	}`)

	props, err := Load(context.Background(), store)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "314159", props[0].PropertyID)
	assert.Equal(t, "acme.example", props[0].Domain)
	assert.Equal(t, []string{"purchase", "sign_up"}, props[0].ConversionEvents)
}

func TestLoadSortsByPropertyID(t *testing.T) {
	store := storeWith(t, `{
		"properties": [
			{"property_id": "b", "is_configured": true},
			{"property_id": "a", "is_configured": true}
		]
	}`)

	props, err := Load(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "a", props[0].PropertyID)
	assert.Equal(t, "b", props[1].PropertyID)
}

func TestLoadEmptyEnabledSetIsError(t *testing.T) {
	store := storeWith(t, `{"properties": [{"property_id": "x", "is_configured": false}]}`)
	_, err := Load(context.Background(), store)
	assert.Error(t, err)
}

func TestLoadMalformedRegistryIsError(t *testing.T) {
	store := storeWith(t, `{"properties": [`)
	_, err := Load(context.Background(), store)
	assert.Error(t, err)
}

func TestLoadMissingRegistryIsError(t *testing.T) {
	store, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	_, err = Load(context.Background(), store)
	assert.Error(t, err)
}

func TestDisabledDimensions(t *testing.T) {
	store := storeWith(t, `{
		"properties": [
			{"property_id": "p", "is_configured": true, "disabled_dimensions": ["landing_page"]}
		]
	}`)

	props, err := Load(context.Background(), store)
	require.NoError(t, err)
	assert.False(t, props[0].DimensionEnabled(domain.DimensionLandingPage))
	assert.True(t, props[0].DimensionEnabled(domain.DimensionGeography))
}
