package catalog

import (
	"context"
	"strings"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/ariefcatur/factory-orders/internal/docstore"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func (in *ProductLotInput) validate() error {
	in.Lot = strings.TrimSpace(in.Lot)
	if in.Lot == "" || in.Product == "" {
		return apperr.Invalid("lot code and product are required")
	}
	if in.State == "" {
		in.State = defaultLotState
	}
	if !in.State.Valid() {
		return apperr.Invalid("unknown lot state %q", in.State)
	}
	if in.Quantity < 0 {
		return apperr.Invalid("lot quantity must not be negative")
	}
	return nil
}

func (in *InsumoLotInput) validate() error {
	in.Lot = strings.TrimSpace(in.Lot)
	if in.Lot == "" || in.Insumo == "" {
		return apperr.Invalid("lot code and insumo are required")
	}
	if in.Quantity < 0 {
		return apperr.Invalid("lot quantity must not be negative")
	}
	return nil
}

func (s *Service) CreateProductLot(ctx context.Context, in ProductLotInput) (ProductLot, error) {
	if err := in.validate(); err != nil {
		return ProductLot{}, err
	}
	if err := s.ensureAbsent(ctx, docstore.ProductLots, "lot", in.Lot); err != nil {
		return ProductLot{}, err
	}
	if err := s.ensureExists(ctx, docstore.Products, in.Product); err != nil {
		return ProductLot{}, err
	}
	l := ProductLot{ID: uuid.NewString(), Lot: in.Lot, Product: in.Product, State: in.State, Quantity: in.Quantity}
	if err := s.store.Insert(ctx, docstore.ProductLots, l.ID, l); err != nil {
		return ProductLot{}, err
	}
	return l, nil
}

func (s *Service) ProductLot(ctx context.Context, id string) (ProductLot, error) {
	return docstore.Get[ProductLot](ctx, s.store, docstore.ProductLots, id)
}

func (s *Service) ProductLots(ctx context.Context) ([]ProductLot, error) {
	return docstore.List[ProductLot](ctx, s.store, docstore.ProductLots, nil)
}

func (s *Service) ProductLotExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, docstore.ProductLots, id)
}

func (s *Service) UpdateProductLot(ctx context.Context, id string, in ProductLotInput) (ProductLot, error) {
	if err := in.validate(); err != nil {
		return ProductLot{}, err
	}
	cur, err := s.ProductLot(ctx, id)
	if err != nil {
		return ProductLot{}, err
	}
	if cur.Lot != in.Lot {
		if err := s.ensureAbsent(ctx, docstore.ProductLots, "lot", in.Lot); err != nil {
			return ProductLot{}, err
		}
	}
	if cur.Product != in.Product {
		if err := s.ensureExists(ctx, docstore.Products, in.Product); err != nil {
			return ProductLot{}, err
		}
	}
	cur.Lot, cur.Product, cur.State, cur.Quantity = in.Lot, in.Product, in.State, in.Quantity
	if err := s.store.UpdateByID(ctx, docstore.ProductLots, id, cur); err != nil {
		return ProductLot{}, err
	}
	return cur, nil
}

func (s *Service) DeleteProductLot(ctx context.Context, id string) error {
	return s.store.DeleteByID(ctx, docstore.ProductLots, id)
}

func (s *Service) CreateInsumoLot(ctx context.Context, in InsumoLotInput) (InsumoLot, error) {
	if err := in.validate(); err != nil {
		return InsumoLot{}, err
	}
	if err := s.ensureAbsent(ctx, docstore.InsumoLots, "lot", in.Lot); err != nil {
		return InsumoLot{}, err
	}
	if err := s.ensureExists(ctx, docstore.Insumos, in.Insumo); err != nil {
		return InsumoLot{}, err
	}
	l := InsumoLot{ID: uuid.NewString(), Lot: in.Lot, Insumo: in.Insumo, Quantity: in.Quantity}
	if err := s.store.Insert(ctx, docstore.InsumoLots, l.ID, l); err != nil {
		return InsumoLot{}, err
	}
	return l, nil
}

func (s *Service) InsumoLot(ctx context.Context, id string) (InsumoLot, error) {
	return docstore.Get[InsumoLot](ctx, s.store, docstore.InsumoLots, id)
}

func (s *Service) InsumoLots(ctx context.Context) ([]InsumoLot, error) {
	return docstore.List[InsumoLot](ctx, s.store, docstore.InsumoLots, nil)
}

func (s *Service) InsumoLotExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, docstore.InsumoLots, id)
}

func (s *Service) UpdateInsumoLot(ctx context.Context, id string, in InsumoLotInput) (InsumoLot, error) {
	if err := in.validate(); err != nil {
		return InsumoLot{}, err
	}
	cur, err := s.InsumoLot(ctx, id)
	if err != nil {
		return InsumoLot{}, err
	}
	if cur.Lot != in.Lot {
		if err := s.ensureAbsent(ctx, docstore.InsumoLots, "lot", in.Lot); err != nil {
			return InsumoLot{}, err
		}
	}
	if cur.Insumo != in.Insumo {
		if err := s.ensureExists(ctx, docstore.Insumos, in.Insumo); err != nil {
			return InsumoLot{}, err
		}
	}
	cur.Lot, cur.Insumo, cur.Quantity = in.Lot, in.Insumo, in.Quantity
	if err := s.store.UpdateByID(ctx, docstore.InsumoLots, id, cur); err != nil {
		return InsumoLot{}, err
	}
	return cur, nil
}

func (s *Service) DeleteInsumoLot(ctx context.Context, id string) error {
	return s.store.DeleteByID(ctx, docstore.InsumoLots, id)
}

func (s *Service) exists(ctx context.Context, coll, id string) (bool, error) {
	err := s.ensureExists(ctx, coll, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
