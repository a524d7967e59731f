package redisx

import (
	"fmt"
	"time"
)

const (
	// Create-order idempotency: idem:order:create:{seller}:{key} -> order id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Cached order document: order:{order_id}
	KeyOrder = "order:%s"

	// Cached report: report:{name}:{limit}
	KeyReport = "report:%s:%d"

	// Processed event marker: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Set of product ids whose stock is under the low-stock threshold.
	KeyLowStock = "stock:low"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLOrderCache  = 5 * time.Minute
	TTLReportCache = time.Minute
	TTLDedup       = 48 * time.Hour
)

const (
	ReportBestClients = "best-clients"
	ReportBestSellers = "best-sellers"
)

func OrderKey(id string) string { return fmt.Sprintf(KeyOrder, id) }

func ReportKey(name string, limit int) string { return fmt.Sprintf(KeyReport, name, limit) }

const reportPattern = "report:*"

func IdemOrderKey(seller, key string) string { return fmt.Sprintf(KeyIdemOrderCreate, seller, key) }

func DedupKey(service, eventID string) string { return fmt.Sprintf(KeyDedup, service, eventID) }
