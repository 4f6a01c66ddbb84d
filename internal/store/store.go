// Package store persists the family document and its feedback history.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"family-os/internal/family"
)

// ErrNotFound is returned when the family document does not exist.
var ErrNotFound = errors.New("family not found")

// DocumentStore is keyed access to family documents plus an append-only
// feedback history per family.
type DocumentStore interface {
	// Get returns the family or ErrNotFound.
	Get(ctx context.Context, id string) (*family.Family, error)
	// Set overwrites the whole document.
	Set(ctx context.Context, id string, fam *family.Family) error
	// Update merges top-level fields into an existing document.
	Update(ctx context.Context, id string, fields map[string]any) error
	// AppendEvent adds a feedback event to the family's history.
	AppendEvent(ctx context.Context, id string, ev family.FeedbackEvent) error
	// ListEvents returns the most recent events first. limit <= 0 means all.
	ListEvents(ctx context.Context, id string, limit int) ([]family.FeedbackEvent, error)
}

// toPlain converts v into JSON-shaped maps, slices and scalars.
func toPlain(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return out, nil
}

// fromPlain decodes JSON-shaped data into a family document.
func fromPlain(id string, v any) (*family.Family, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return decodeFamily(id, b)
}

func decodeFamily(id string, data []byte) (*family.Family, error) {
	var fam family.Family
	if err := json.Unmarshal(data, &fam); err != nil {
		return nil, fmt.Errorf("failed to decode family %s: %w", id, err)
	}
	if fam.ID == "" {
		fam.ID = id
	}
	if fam.Preferences == nil {
		fam.Preferences = map[string]int{}
	}
	return &fam, nil
}
