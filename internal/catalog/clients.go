package catalog

import (
	"context"
	"strings"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/ariefcatur/factory-orders/internal/auth"
	"github.com/ariefcatur/factory-orders/internal/docstore"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func (in *ClientInput) validate() error {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Name == "" || in.Surname == "" || in.Company == "" || in.Email == "" {
		return apperr.Invalid("client name, surname, company and email are required")
	}
	return nil
}

// CheckOwner fails with Forbidden unless the actor is the client's assigned seller.
func CheckOwner(c Client, a auth.Actor) error {
	if c.Seller == "" || c.Seller != a.ID {
		return apperr.Forbidden("client %s belongs to another seller", c.ID)
	}
	return nil
}

// CreateClient assigns the new client to the acting seller.
func (s *Service) CreateClient(ctx context.Context, actor auth.Actor, in ClientInput) (Client, error) {
	if err := in.validate(); err != nil {
		return Client{}, err
	}
	if err := s.ensureAbsent(ctx, docstore.Clients, "email", in.Email); err != nil {
		return Client{}, err
	}
	c := Client{
		ID:      uuid.NewString(),
		Name:    in.Name,
		Surname: in.Surname,
		Company: in.Company,
		Email:   in.Email,
		Phone:   in.Phone,
		Seller:  actor.ID,
	}
	if err := s.store.Insert(ctx, docstore.Clients, c.ID, c); err != nil {
		return Client{}, err
	}
	log.Ctx(ctx).Info().Str("client_id", c.ID).Str("seller", c.Seller).Msg("client created")
	return c, nil
}

func (s *Service) Clients(ctx context.Context) ([]Client, error) {
	return docstore.List[Client](ctx, s.store, docstore.Clients, nil)
}

func (s *Service) ClientsOf(ctx context.Context, actor auth.Actor) ([]Client, error) {
	return docstore.List[Client](ctx, s.store, docstore.Clients, docstore.Filter{"seller": actor.ID})
}

func (s *Service) Client(ctx context.Context, actor auth.Actor, id string) (Client, error) {
	c, err := docstore.Get[Client](ctx, s.store, docstore.Clients, id)
	if err != nil {
		return Client{}, err
	}
	if err := CheckOwner(c, actor); err != nil {
		return Client{}, err
	}
	return c, nil
}

func (s *Service) UpdateClient(ctx context.Context, actor auth.Actor, id string, in ClientInput) (Client, error) {
	if err := in.validate(); err != nil {
		return Client{}, err
	}
	c, err := s.Client(ctx, actor, id)
	if err != nil {
		return Client{}, err
	}
	if c.Email != in.Email {
		if err := s.ensureAbsent(ctx, docstore.Clients, "email", in.Email); err != nil {
			return Client{}, err
		}
	}
	c.Name, c.Surname, c.Company, c.Email, c.Phone = in.Name, in.Surname, in.Company, in.Email, in.Phone
	if err := s.store.UpdateByID(ctx, docstore.Clients, id, c); err != nil {
		return Client{}, err
	}
	return c, nil
}

func (s *Service) DeleteClient(ctx context.Context, actor auth.Actor, id string) error {
	if _, err := s.Client(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.DeleteByID(ctx, docstore.Clients, id); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("client_id", id).Msg("client deleted")
	return nil
}
