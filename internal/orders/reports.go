package orders

import (
	"context"
	"encoding/json"

	"github.com/ariefcatur/factory-orders/internal/auth"
	"github.com/ariefcatur/factory-orders/internal/catalog"
	"github.com/ariefcatur/factory-orders/internal/docstore"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const DefaultBestSellersLimit = 3

// BestClients ranks clients by the summed total of their completed orders.
func BestClients(limit int) docstore.Pipeline {
	return docstore.Pipeline{
		Collection: docstore.Orders,
		Match:      docstore.Filter{"status": StatusCompleted},
		GroupBy:    "client",
		Sum:        "total",
		Join:       docstore.Clients,
		Limit:      limit,
	}
}

// BestSellers ranks sellers by the summed total of their completed orders.
func BestSellers(limit int) docstore.Pipeline {
	if limit <= 0 {
		limit = DefaultBestSellersLimit
	}
	return docstore.Pipeline{
		Collection: docstore.Orders,
		Match:      docstore.Filter{"status": StatusCompleted},
		GroupBy:    "seller",
		Sum:        "total",
		Join:       docstore.Users,
		Limit:      limit,
	}
}

type TopClient struct {
	Total  decimal.Decimal `json:"total"`
	Client *catalog.Client `json:"client"` // nil when the client was deleted
}

type TopSeller struct {
	Total  decimal.Decimal `json:"total"`
	Seller *auth.User      `json:"seller"`
}

func (s *Service) BestClients(ctx context.Context, limit int) ([]TopClient, error) {
	groups, err := s.store.Aggregate(ctx, BestClients(limit))
	if err != nil {
		return nil, errors.Wrap(err, "best clients")
	}
	out := make([]TopClient, 0, len(groups))
	for _, g := range groups {
		row := TopClient{Total: g.Total}
		if g.Doc != nil {
			var c catalog.Client
			if err := json.Unmarshal(g.Doc, &c); err != nil {
				return nil, errors.Wrapf(err, "decode client %s", g.Key)
			}
			row.Client = &c
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Service) BestSellers(ctx context.Context, limit int) ([]TopSeller, error) {
	groups, err := s.store.Aggregate(ctx, BestSellers(limit))
	if err != nil {
		return nil, errors.Wrap(err, "best sellers")
	}
	out := make([]TopSeller, 0, len(groups))
	for _, g := range groups {
		row := TopSeller{Total: g.Total}
		if g.Doc != nil {
			var u auth.User
			if err := json.Unmarshal(g.Doc, &u); err != nil {
				return nil, errors.Wrapf(err, "decode seller %s", g.Key)
			}
			u = u.Public()
			row.Seller = &u
		}
		out = append(out, row)
	}
	return out, nil
}
