package postgres

import (
	"fmt"

	"github.com/ariefcatur/factory-orders/internal/docstore"
	"github.com/pkg/errors"
)

// pipelineSQL compiles a Pipeline into one grouped query over the documents table.
func pipelineSQL(p docstore.Pipeline) (string, []any, error) {
	if p.Collection == "" || p.GroupBy == "" || p.Sum == "" {
		return "", nil, errors.New("pipeline needs collection, group and sum fields")
	}
	match, err := encodeFilter(p.Match)
	if err != nil {
		return "", nil, err
	}
	args := []any{p.Collection, match, p.GroupBy, p.Sum}

	joinCol, join := "NULL::jsonb", ""
	if p.Join != "" {
		args = append(args, p.Join)
		joinCol = "j.body"
		join = "\n\tLEFT JOIN documents j ON j.collection = $5 AND j.id = g.key"
	}

	sql := fmt.Sprintf(`SELECT g.key, g.total::text, %s
	FROM (
		SELECT body->>$3::text AS key, SUM(COALESCE((body->>$4::text)::numeric, 0)) AS total
		FROM documents
		WHERE collection = $1 AND body @> $2::jsonb
		GROUP BY 1
	) g%s
	ORDER BY g.total DESC, g.key`, joinCol, join)
	if p.Limit > 0 {
		sql += fmt.Sprintf("\n\tLIMIT %d", p.Limit)
	}
	return sql, args, nil
}
