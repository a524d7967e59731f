package postgres

import (
	"strings"
	"testing"

	"github.com/ariefcatur/factory-orders/internal/docstore"
)

func TestPipelineSQL_JoinAndLimit(t *testing.T) {
	sql, args, err := pipelineSQL(docstore.Pipeline{
		Collection: docstore.Orders,
		Match:      docstore.Filter{"status": "COMPLETED"},
		GroupBy:    "seller",
		Sum:        "total",
		Join:       docstore.Users,
		Limit:      3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sql, "LEFT JOIN documents j ON j.collection = $5") {
		t.Errorf("missing join: %s", sql)
	}
	if !strings.HasSuffix(sql, "LIMIT 3") {
		t.Errorf("limit must come after ORDER BY: %s", sql)
	}
	if len(args) != 5 || args[1] != `{"status":"COMPLETED"}` || args[4] != docstore.Users {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestPipelineSQL_NoJoin(t *testing.T) {
	sql, args, err := pipelineSQL(docstore.Pipeline{Collection: docstore.Orders, GroupBy: "client", Sum: "total"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(sql, "JOIN") || strings.Contains(sql, "LIMIT") {
		t.Errorf("unexpected clause: %s", sql)
	}
	if len(args) != 4 || args[1] != "{}" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestPipelineSQL_Invalid(t *testing.T) {
	if _, _, err := pipelineSQL(docstore.Pipeline{Collection: docstore.Orders}); err == nil {
		t.Error("expected error for pipeline without group field")
	}
}

func TestMigrations_UniqueIndexes(t *testing.T) {
	stmts := migrations()
	joined := strings.Join(stmts, "\n")
	for coll, fields := range docstore.UniqueFields {
		for _, f := range fields {
			want := "documents_" + coll + "_" + f + "_uq"
			if !strings.Contains(joined, want) {
				t.Errorf("missing index %s", want)
			}
		}
	}
}
