package catalog

import (
	"context"
	"strings"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/ariefcatur/factory-orders/internal/docstore"
	"github.com/google/uuid"
)

func (in *InsumoInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" || in.Category == "" {
		return apperr.Invalid("insumo name and category are required")
	}
	return nil
}

func (s *Service) CreateInsumo(ctx context.Context, in InsumoInput) (Insumo, error) {
	if err := in.validate(); err != nil {
		return Insumo{}, err
	}
	if err := s.ensureAbsent(ctx, docstore.Insumos, "name", in.Name); err != nil {
		return Insumo{}, err
	}
	i := Insumo{ID: uuid.NewString(), Name: in.Name, Category: in.Category}
	if err := s.store.Insert(ctx, docstore.Insumos, i.ID, i); err != nil {
		return Insumo{}, err
	}
	return i, nil
}

func (s *Service) Insumo(ctx context.Context, id string) (Insumo, error) {
	return docstore.Get[Insumo](ctx, s.store, docstore.Insumos, id)
}

func (s *Service) Insumos(ctx context.Context) ([]Insumo, error) {
	return docstore.List[Insumo](ctx, s.store, docstore.Insumos, nil)
}

func (s *Service) UpdateInsumo(ctx context.Context, id string, in InsumoInput) (Insumo, error) {
	if err := in.validate(); err != nil {
		return Insumo{}, err
	}
	cur, err := s.Insumo(ctx, id)
	if err != nil {
		return Insumo{}, err
	}
	if cur.Name != in.Name {
		if err := s.ensureAbsent(ctx, docstore.Insumos, "name", in.Name); err != nil {
			return Insumo{}, err
		}
	}
	cur.Name, cur.Category = in.Name, in.Category
	if err := s.store.UpdateByID(ctx, docstore.Insumos, id, cur); err != nil {
		return Insumo{}, err
	}
	return cur, nil
}

func (s *Service) DeleteInsumo(ctx context.Context, id string) error {
	return s.store.DeleteByID(ctx, docstore.Insumos, id)
}
