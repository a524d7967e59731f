package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type LineItem struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type Order struct {
	ID      string          `json:"id"`
	Items   []LineItem      `json:"items"`
	Total   decimal.Decimal `json:"total"`
	Client  string          `json:"client"`
	Seller  string          `json:"seller"` // always the user who placed the order
	Status  Status          `json:"status"`
	Created time.Time       `json:"created"`
}

type PlaceInput struct {
	Client string          `json:"client"`
	Items  []LineItem      `json:"items"`
	Total  decimal.Decimal `json:"total"`
	Status Status          `json:"status"` // empty means PENDING
	Seller string          `json:"seller"` // ignored; the acting user is the seller
}

// UpdateInput replaces only the fields that are set. A non-nil Items replaces the
// whole line-item list and re-reserves stock.
type UpdateInput struct {
	Client *string          `json:"client"`
	Items  []LineItem       `json:"items"`
	Total  *decimal.Decimal `json:"total"`
	Status *Status          `json:"status"`
}
