// Package registry loads the monitored-property roster from the
// config/properties.json blob maintained by the account team.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/scoutwatch/scout/internal/blob"
	"github.com/scoutwatch/scout/internal/domain"
)

// Key is the registry's location in the blob store.
const Key = "config/properties.json"

type registryFile struct {
	Properties []propertyEntry `json:"properties"`
}

type propertyEntry struct {
	PropertyID       string `json:"property_id"`
	DatasetID        string `json:"dataset_id"`
	ClientName       string `json:"client_name"`
	Domain           string `json:"domain"`
	ConversionEvents string `json:"conversion_events"` // comma-separated
	Notes            string `json:"notes"`
	IsConfigured     bool   `json:"is_configured"`

	DisabledDimensions []string `json:"disabled_dimensions,omitempty"`
	MinRecordSessions  int      `json:"min_record_sessions,omitempty"`
	MinTrendSessions   int      `json:"min_trend_sessions,omitempty"`
}

// Load reads the registry and returns the configured properties sorted
// by property_id. An absent, malformed or empty-after-filter registry
// is an error; the run cannot proceed without a roster.
func Load(ctx context.Context, store blob.Store) ([]domain.PropertyConfig, error) {
	data, err := store.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("property registry: %w", err)
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("property registry malformed: %w", err)
	}

	properties := make([]domain.PropertyConfig, 0, len(file.Properties))
	for _, entry := range file.Properties {
		if !entry.IsConfigured {
			continue
		}
		if entry.PropertyID == "" {
			return nil, fmt.Errorf("property registry: configured entry with empty property_id")
		}
		properties = append(properties, domain.PropertyConfig{
			PropertyID:         entry.PropertyID,
			DatasetID:          entry.DatasetID,
			ClientName:         entry.ClientName,
			Domain:             normalizeDomain(entry.Domain),
			ConversionEvents:   splitEvents(entry.ConversionEvents),
			Notes:              entry.Notes,
			IsConfigured:       true,
			DisabledDimensions: parseDimensions(entry.DisabledDimensions),
			MinRecordSessions:  entry.MinRecordSessions,
			MinTrendSessions:   entry.MinTrendSessions,
		})
	}

	if len(properties) == 0 {
		return nil, fmt.Errorf("property registry: no configured properties")
	}

	sort.Slice(properties, func(i, j int) bool {
		return properties[i].PropertyID < properties[j].PropertyID
	})
	return properties, nil
}

func splitEvents(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	events := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			events = append(events, trimmed)
		}
	}
	return events
}

func normalizeDomain(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimSuffix(s, "/")
}

func parseDimensions(names []string) []domain.Dimension {
	dims := make([]domain.Dimension, 0, len(names))
	for _, n := range names {
		dims = append(dims, domain.Dimension(n))
	}
	return dims
}
