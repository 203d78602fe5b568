// internal/query/accessors.go
//
// Typed accessors over the Store's raw envelopes.  Generics live here as
// package functions because Go methods cannot take type parameters.
//
// Derived lookups fetch the full collection and scan client-side; there
// is no single-item backend endpoint.  A miss is a typed ErrNotFound,
// never a zero value with nil error.
package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yanizio/folio/internal/content"
)

// Identified is any item with a stable identifier.
type Identified interface{ Identifier() string }

// Slugged is any item addressable by URL slug.
type Slugged interface{ SlugOf() string }

// GetAs blocks for t's envelope and narrows it to T.
func GetAs[T any](ctx context.Context, s *Store, t content.Type) (T, error) {
	var out T
	raw, err := s.Get(ctx, t)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s envelope: %w", t, err)
	}
	return out, nil
}

// ByID scans t's collection for the item with the given identifier.
func ByID[T Identified](ctx context.Context, s *Store, t content.Type, id string) (T, error) {
	var zero T
	items, err := GetAs[[]T](ctx, s, t)
	if err != nil {
		return zero, err
	}
	for _, it := range items {
		if it.Identifier() == id {
			return it, nil
		}
	}
	return zero, fmt.Errorf("%s %q: %w", t, id, ErrNotFound)
}

// BySlug scans t's collection for the item with the given slug.
func BySlug[T Slugged](ctx context.Context, s *Store, t content.Type, slug string) (T, error) {
	var zero T
	items, err := GetAs[[]T](ctx, s, t)
	if err != nil {
		return zero, err
	}
	for _, it := range items {
		if it.SlugOf() == slug {
			return it, nil
		}
	}
	return zero, fmt.Errorf("%s slug %q: %w", t, slug, ErrNotFound)
}
