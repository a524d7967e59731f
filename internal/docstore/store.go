// Package docstore is the document store every workflow persists through.
//
// Documents are JSON bodies keyed by (collection, id). Single-document operations are
// atomic; Tx groups several of them into one all-or-nothing unit.
package docstore

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

const (
	Users       = "users"
	Products    = "products"
	Insumos     = "insumos"
	ProductLots = "product_lots"
	InsumoLots  = "insumo_lots"
	Clients     = "clients"
	Orders      = "orders"
)

// UniqueFields lists the naturally keyed fields per collection.
var UniqueFields = map[string][]string{
	Users:       {"email"},
	Products:    {"name"},
	Insumos:     {"name"},
	ProductLots: {"lot"},
	InsumoLots:  {"lot"},
	Clients:     {"email"},
}

// ErrInsufficient is returned by ConditionalDecrement when the field holds less than asked.
var ErrInsufficient = errors.New("insufficient value")

// Filter matches documents whose top-level fields equal the given values.
type Filter map[string]any

type Store interface {
	FindByID(ctx context.Context, coll, id string, out any) error
	FindOne(ctx context.Context, coll string, f Filter, out any) error
	// Find decodes every match, in insertion order, into out (a pointer to a slice).
	Find(ctx context.Context, coll string, f Filter, out any) error
	// Search matches a case-insensitive substring of a string field.
	Search(ctx context.Context, coll, field, text string, out any) error
	Insert(ctx context.Context, coll, id string, doc any) error
	// UpdateByID merges the top-level fields of patch into the stored document.
	UpdateByID(ctx context.Context, coll, id string, patch any) error
	DeleteByID(ctx context.Context, coll, id string) error
	// ConditionalDecrement subtracts n from an integer field only if the field holds at
	// least n. It returns the new value, or the current value with ErrInsufficient.
	ConditionalDecrement(ctx context.Context, coll, id, field string, n int) (int, error)
	Increment(ctx context.Context, coll, id, field string, n int) (int, error)
	Aggregate(ctx context.Context, p Pipeline) ([]Group, error)
	// Tx runs fn against a transactional view. Writes made through the view are kept
	// only when fn returns nil.
	Tx(ctx context.Context, fn func(Store) error) error
}

func Get[T any](ctx context.Context, s Store, coll, id string) (T, error) {
	var v T
	err := s.FindByID(ctx, coll, id, &v)
	return v, err
}

func One[T any](ctx context.Context, s Store, coll string, f Filter) (T, error) {
	var v T
	err := s.FindOne(ctx, coll, f, &v)
	return v, err
}

func List[T any](ctx context.Context, s Store, coll string, f Filter) ([]T, error) {
	out := []T{}
	if err := s.Find(ctx, coll, f, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func SearchList[T any](ctx context.Context, s Store, coll, field, text string) ([]T, error) {
	out := []T{}
	if err := s.Search(ctx, coll, field, text, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeAll unmarshals raw documents into out, a pointer to a slice.
func DecodeAll(bodies [][]byte, out any) error {
	arr := make([]json.RawMessage, len(bodies))
	for i, b := range bodies {
		arr[i] = b
	}
	buf, err := json.Marshal(arr)
	if err != nil {
		return errors.Wrap(err, "encode documents")
	}
	return errors.Wrap(json.Unmarshal(buf, out), "decode documents")
}
