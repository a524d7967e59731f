package docstore

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Pipeline is a fixed match -> group -> join -> sort -> limit aggregation.
type Pipeline struct {
	Collection string
	Match      Filter
	GroupBy    string // field whose value keys each group
	Sum        string // numeric field summed per group
	Join       string // collection whose document id equals the group key; empty for none
	Limit      int    // 0 keeps every group
}

// Group is one aggregation row. Rows come back sorted by Total descending, ties by Key.
type Group struct {
	Key   string
	Total decimal.Decimal
	Doc   json.RawMessage // joined document, nil when Join is empty or the id is gone
}
