package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/ariefcatur/factory-orders/internal/docstore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const createDocuments = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	body       JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

const createBodyIndex = `CREATE INDEX IF NOT EXISTS documents_body_idx ON documents USING GIN (body jsonb_path_ops)`

// Migrate creates the documents table and one unique index per naturally keyed field.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations() {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migrate: %s", stmt)
		}
	}
	return nil
}

func migrations() []string {
	stmts := []string{createDocuments, createBodyIndex}
	colls := make([]string, 0, len(docstore.UniqueFields))
	for c := range docstore.UniqueFields {
		colls = append(colls, c)
	}
	sort.Strings(colls)
	for _, c := range colls {
		for _, f := range docstore.UniqueFields[c] {
			stmts = append(stmts, fmt.Sprintf(
				`CREATE UNIQUE INDEX IF NOT EXISTS documents_%s_%s_uq ON documents ((body->>'%s')) WHERE collection = '%s'`,
				c, f, f, c))
		}
	}
	return stmts
}
