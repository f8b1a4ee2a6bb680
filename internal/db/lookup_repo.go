package db

import (
	"context"
	"fmt"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

// A LookupRepo reads single fields of rows keyed by id, the collection is the table name
type LookupRepo struct {
	db *DB
}

// NewLookupRepo creates a new instance of LookupRepo over db
func NewLookupRepo(db *DB) *LookupRepo {
	return &LookupRepo{db}
}

type lookupRow struct {
	Value *string `db:"value"`
}

func lookupQuery(collection, field string) string {
	return fmt.Sprintf(
		"SELECT %s AS value FROM %s WHERE id = $1",
		pgx.Identifier{field}.Sanitize(), pgx.Identifier{collection}.Sanitize(),
	)
}

func upsertQuery(collection, field string) string {
	column := pgx.Identifier{field}.Sanitize()
	return fmt.Sprintf(
		"INSERT INTO %s (id, %s) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET %s = EXCLUDED.%s",
		pgx.Identifier{collection}.Sanitize(), column, column, column,
	)
}

// Lookup returns field of the row with id key, a missing row or NULL value is reported as not found
func (r *LookupRepo) Lookup(ctx context.Context, collection, key, field string) (string, bool, error) {
	var row lookupRow
	err := pgxscan.Get(ctx, r.db.pool, &row, lookupQuery(collection, field), key)
	if err != nil {
		if pgxscan.NotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("lookup %s.%s: %w", collection, field, err)
	}
	if row.Value == nil {
		return "", false, nil
	}
	return *row.Value, true, nil
}

// Upsert stores value as field of the row with id key
func (r *LookupRepo) Upsert(ctx context.Context, collection, key, field, value string) error {
	return r.db.WithTx(
		ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, upsertQuery(collection, field), key, value)
			return err
		},
	)
}
