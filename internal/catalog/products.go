package catalog

import (
	"context"
	"strings"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/ariefcatur/factory-orders/internal/docstore"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func (in *ProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" || in.Category == "" {
		return apperr.Invalid("product name and category are required")
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		return apperr.Invalid("product quantity must not be negative")
	}
	if in.PerBox < 0 {
		return apperr.Invalid("units per box must not be negative")
	}
	return nil
}

func (s *Service) checkInsumos(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := s.ensureExists(ctx, docstore.Insumos, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if err := in.validate(); err != nil {
		return Product{}, err
	}
	if err := s.ensureAbsent(ctx, docstore.Products, "name", in.Name); err != nil {
		return Product{}, err
	}
	if err := s.checkInsumos(ctx, in.Insumos); err != nil {
		return Product{}, err
	}

	p := Product{
		ID:       uuid.NewString(),
		Name:     in.Name,
		Category: in.Category,
		Box:      in.Box,
		PerBox:   in.PerBox,
		Insumos:  in.Insumos,
	}
	if p.Insumos == nil {
		p.Insumos = []string{}
	}
	if in.Quantity != nil {
		p.Quantity = *in.Quantity
	}
	if err := s.store.Insert(ctx, docstore.Products, p.ID, p); err != nil {
		return Product{}, err
	}
	log.Ctx(ctx).Info().Str("product_id", p.ID).Str("name", p.Name).Msg("product created")
	return p, nil
}

func (s *Service) Product(ctx context.Context, id string) (Product, error) {
	return docstore.Get[Product](ctx, s.store, docstore.Products, id)
}

func (s *Service) Products(ctx context.Context) ([]Product, error) {
	return docstore.List[Product](ctx, s.store, docstore.Products, nil)
}

func (s *Service) SearchProducts(ctx context.Context, text string) ([]Product, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Invalid("search text is required")
	}
	return docstore.SearchList[Product](ctx, s.store, docstore.Products, "name", text)
}

// UpdateProduct edits catalog fields. Stock only changes when in.Quantity is set.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (Product, error) {
	if err := in.validate(); err != nil {
		return Product{}, err
	}
	cur, err := s.Product(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if cur.Name != in.Name {
		if err := s.ensureAbsent(ctx, docstore.Products, "name", in.Name); err != nil {
			return Product{}, err
		}
	}
	if err := s.checkInsumos(ctx, in.Insumos); err != nil {
		return Product{}, err
	}

	patch := map[string]any{
		"name":     in.Name,
		"category": in.Category,
		"box":      in.Box,
		"per_box":  in.PerBox,
	}
	if in.Insumos != nil {
		patch["insumos"] = in.Insumos
	}
	if in.Quantity != nil {
		patch["quantity"] = *in.Quantity
	}
	if err := s.store.UpdateByID(ctx, docstore.Products, id, patch); err != nil {
		return Product{}, err
	}
	return s.Product(ctx, id)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.store.DeleteByID(ctx, docstore.Products, id); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("product_id", id).Msg("product deleted")
	return nil
}
