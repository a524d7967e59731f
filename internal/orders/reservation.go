package orders

import (
	"context"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/ariefcatur/factory-orders/internal/catalog"
	"github.com/ariefcatur/factory-orders/internal/docstore"
	"github.com/pkg/errors"
)

const quantityField = "quantity"

func validateItems(items []LineItem) error {
	if len(items) == 0 {
		return apperr.Invalid("an order needs at least one line item")
	}
	for i, it := range items {
		if it.Product == "" {
			return apperr.Invalid("line item %d has no product", i)
		}
		if it.Quantity <= 0 {
			return apperr.Invalid("invalid quantity %d for product %s", it.Quantity, it.Product)
		}
	}
	return nil
}

// reserve takes stock for every line item, in order, and stops at the first shortfall.
// It must run inside a transaction: earlier decrements are only undone by the rollback.
func reserve(ctx context.Context, tx docstore.Store, items []LineItem) ([]StockLevel, error) {
	levels := make([]StockLevel, 0, len(items))
	for _, it := range items {
		left, err := tx.ConditionalDecrement(ctx, docstore.Products, it.Product, quantityField, it.Quantity)
		if errors.Is(err, docstore.ErrInsufficient) {
			se := &apperr.InsufficientStockError{ProductID: it.Product, ProductName: it.Product, Requested: it.Quantity, Available: left}
			if p, err := docstore.Get[catalog.Product](ctx, tx, docstore.Products, it.Product); err == nil {
				se.ProductName = p.Name
			}
			return nil, se
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reserve product %s", it.Product)
		}
		levels = append(levels, StockLevel{ProductID: it.Product, Remaining: left})
	}
	return levels, nil
}

// release returns line-item quantities to stock. Products deleted since the order was
// placed are skipped.
func release(ctx context.Context, tx docstore.Store, items []LineItem) ([]StockLevel, error) {
	levels := make([]StockLevel, 0, len(items))
	for _, it := range items {
		left, err := tx.Increment(ctx, docstore.Products, it.Product, quantityField, it.Quantity)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "release product %s", it.Product)
		}
		levels = append(levels, StockLevel{ProductID: it.Product, Remaining: left})
	}
	return levels, nil
}

// mergeLevels keeps the last level seen per product.
func mergeLevels(groups ...[]StockLevel) []StockLevel {
	idx := map[string]int{}
	var out []StockLevel
	for _, g := range groups {
		for _, l := range g {
			if i, ok := idx[l.ProductID]; ok {
				out[i] = l
				continue
			}
			idx[l.ProductID] = len(out)
			out = append(out, l)
		}
	}
	return out
}
