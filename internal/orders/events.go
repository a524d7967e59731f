package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced  = "OrderPlaced"
	EventOrderUpdated = "OrderUpdated"
	EventOrderDeleted = "OrderDeleted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// StockLevel is a product's available quantity right after a reservation or release.
type StockLevel struct {
	ProductID string `json:"product_id"`
	Remaining int    `json:"remaining"`
}

type OrderEventPayload struct {
	OrderID  string          `json:"order_id"`
	ClientID string          `json:"client_id"`
	SellerID string          `json:"seller_id"`
	Status   Status          `json:"status"`
	Items    []LineItem      `json:"items,omitempty"`
	Total    decimal.Decimal `json:"total"`
	Stock    []StockLevel    `json:"stock,omitempty"`
}
