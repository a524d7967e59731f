package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/ariefcatur/factory-orders/internal/docstore"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DocStore keeps every collection in one JSONB table.
type DocStore struct {
	db   querier
	pool *pgxpool.Pool // nil inside a transaction
}

func NewDocStore(pool *pgxpool.Pool) *DocStore {
	return &DocStore{db: pool, pool: pool}
}

func (s *DocStore) FindByID(ctx context.Context, coll, id string, out any) error {
	var body []byte
	err := s.db.QueryRow(ctx, `SELECT body FROM documents WHERE collection=$1 AND id=$2`, coll, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("%s %s", coll, id)
	}
	if err != nil {
		return errors.Wrapf(err, "find %s %s", coll, id)
	}
	return errors.Wrap(json.Unmarshal(body, out), "decode document")
}

func (s *DocStore) FindOne(ctx context.Context, coll string, f docstore.Filter, out any) error {
	filter, err := encodeFilter(f)
	if err != nil {
		return err
	}
	var body []byte
	err = s.db.QueryRow(ctx, `
		SELECT body FROM documents
		WHERE collection=$1 AND body @> $2::jsonb
		ORDER BY created_at, id LIMIT 1`, coll, filter).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("%s matching %s", coll, filter)
	}
	if err != nil {
		return errors.Wrapf(err, "find one %s", coll)
	}
	return errors.Wrap(json.Unmarshal(body, out), "decode document")
}

func (s *DocStore) Find(ctx context.Context, coll string, f docstore.Filter, out any) error {
	filter, err := encodeFilter(f)
	if err != nil {
		return err
	}
	return s.collect(ctx, out, `
		SELECT body FROM documents
		WHERE collection=$1 AND body @> $2::jsonb
		ORDER BY created_at, id`, coll, filter)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *DocStore) Search(ctx context.Context, coll, field, text string, out any) error {
	return s.collect(ctx, out, `
		SELECT body FROM documents
		WHERE collection=$1 AND body->>$2::text ILIKE '%' || $3::text || '%' ESCAPE '\'
		ORDER BY created_at, id`, coll, field, likeEscaper.Replace(text))
}

func (s *DocStore) collect(ctx context.Context, out any, sql string, args ...any) error {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return errors.Wrap(err, "query documents")
	}
	defer rows.Close()

	var bodies [][]byte
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return errors.Wrap(err, "scan document")
		}
		bodies = append(bodies, b)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "read documents")
	}
	return docstore.DecodeAll(bodies, out)
}

func (s *DocStore) Insert(ctx context.Context, coll, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encode document")
	}
	_, err = s.db.Exec(ctx, `INSERT INTO documents(collection, id, body) VALUES ($1, $2, $3::jsonb)`, coll, id, string(body))
	if isUniqueViolation(err) {
		return apperr.Conflict("%s %s", coll, id)
	}
	return errors.Wrapf(err, "insert %s %s", coll, id)
}

func (s *DocStore) UpdateByID(ctx context.Context, coll, id string, patch any) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return errors.Wrap(err, "encode patch")
	}
	ct, err := s.db.Exec(ctx, `
		UPDATE documents SET body = body || $3::jsonb, updated_at=now()
		WHERE collection=$1 AND id=$2`, coll, id, string(body))
	if isUniqueViolation(err) {
		return apperr.Conflict("%s %s", coll, id)
	}
	if err != nil {
		return errors.Wrapf(err, "update %s %s", coll, id)
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("%s %s", coll, id)
	}
	return nil
}

func (s *DocStore) DeleteByID(ctx context.Context, coll, id string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM documents WHERE collection=$1 AND id=$2`, coll, id)
	if err != nil {
		return errors.Wrapf(err, "delete %s %s", coll, id)
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("%s %s", coll, id)
	}
	return nil
}

// ConditionalDecrement relies on the row lock UPDATE takes: the WHERE guard is
// re-evaluated against the latest committed value, so concurrent callers cannot oversell.
func (s *DocStore) ConditionalDecrement(ctx context.Context, coll, id, field string, n int) (int, error) {
	var left int
	err := s.db.QueryRow(ctx, `
		UPDATE documents
		SET body = jsonb_set(body, ARRAY[$3::text], to_jsonb(COALESCE((body->>$3::text)::int, 0) - $4::int)),
		    updated_at = now()
		WHERE collection=$1 AND id=$2 AND COALESCE((body->>$3::text)::int, 0) >= $4::int
		RETURNING (body->>$3::text)::int`, coll, id, field, n).Scan(&left)
	if err == nil {
		return left, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, errors.Wrapf(err, "decrement %s %s.%s", coll, id, field)
	}

	var cur int
	err = s.db.QueryRow(ctx, `
		SELECT COALESCE((body->>$3::text)::int, 0) FROM documents
		WHERE collection=$1 AND id=$2`, coll, id, field).Scan(&cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound("%s %s", coll, id)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "read %s %s.%s", coll, id, field)
	}
	return cur, docstore.ErrInsufficient
}

func (s *DocStore) Increment(ctx context.Context, coll, id, field string, n int) (int, error) {
	var v int
	err := s.db.QueryRow(ctx, `
		UPDATE documents
		SET body = jsonb_set(body, ARRAY[$3::text], to_jsonb(COALESCE((body->>$3::text)::int, 0) + $4::int)),
		    updated_at = now()
		WHERE collection=$1 AND id=$2
		RETURNING (body->>$3::text)::int`, coll, id, field, n).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound("%s %s", coll, id)
	}
	return v, errors.Wrapf(err, "increment %s %s.%s", coll, id, field)
}

func (s *DocStore) Aggregate(ctx context.Context, p docstore.Pipeline) ([]docstore.Group, error) {
	sql, args, err := pipelineSQL(p)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate")
	}
	defer rows.Close()

	var out []docstore.Group
	for rows.Next() {
		var (
			g     docstore.Group
			key   *string
			total string
			doc   []byte
		)
		if err := rows.Scan(&key, &total, &doc); err != nil {
			return nil, errors.Wrap(err, "scan group")
		}
		if key != nil {
			g.Key = *key
		}
		if g.Total, err = decimal.NewFromString(total); err != nil {
			return nil, errors.Wrapf(err, "group %s total", g.Key)
		}
		if doc != nil {
			g.Doc = json.RawMessage(doc)
		}
		out = append(out, g)
	}
	return out, errors.Wrap(rows.Err(), "read groups")
}

func (s *DocStore) Tx(ctx context.Context, fn func(docstore.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&DocStore{db: tx}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "commit")
}

func encodeFilter(f docstore.Filter) (string, error) {
	if len(f) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", errors.Wrap(err, "encode filter")
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
