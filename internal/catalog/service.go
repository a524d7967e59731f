// Package catalog manages products, raw inputs, their stock lots and the clients
// sellers work with.
package catalog

import (
	"context"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/ariefcatur/factory-orders/internal/docstore"
	"github.com/pkg/errors"
)

type Service struct {
	store docstore.Store
}

func NewService(store docstore.Store) *Service {
	return &Service{store: store}
}

// ensureAbsent fails with Conflict when coll already holds a document with field == value.
// The store's unique index still guards the insert against racing creates.
func (s *Service) ensureAbsent(ctx context.Context, coll, field, value string) error {
	var existing map[string]any
	err := s.store.FindOne(ctx, coll, docstore.Filter{field: value}, &existing)
	switch {
	case err == nil:
		return apperr.Conflict("%s with %s %q", coll, field, value)
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	default:
		return err
	}
}

// ensureExists fails with NotFound when coll has no document with that id.
func (s *Service) ensureExists(ctx context.Context, coll, id string) error {
	var existing map[string]any
	return s.store.FindByID(ctx, coll, id, &existing)
}
