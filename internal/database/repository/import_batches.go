package repository

import (
	"context"
	"time"
)

// ImportBatchRepo records import calls.
type ImportBatchRepo struct{ db Querier }

func NewImportBatchRepo(db Querier) *ImportBatchRepo { return &ImportBatchRepo{db: db} }

func (r *ImportBatchRepo) Add(ctx context.Context, b ImportBatch) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO import_batches(id, source, accepted, duplicates, rejected, imported_at)
	VALUES(?, ?, ?, ?, ?, ?)
	`, b.ID, b.Source, b.Accepted, b.Duplicates, b.Rejected, b.ImportedAt.UTC().Format(time.RFC3339))
	return err
}

// List returns batches newest first. Batches recorded in the same second
// come back in reverse insertion order.
func (r *ImportBatchRepo) List(ctx context.Context) ([]ImportBatch, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, source, accepted, duplicates, rejected, imported_at FROM import_batches ORDER BY imported_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ImportBatch
	for rows.Next() {
		var b ImportBatch
		var at string
		if err := rows.Scan(&b.ID, &b.Source, &b.Accepted, &b.Duplicates, &b.Rejected, &at); err != nil {
			return nil, err
		}
		if b.ImportedAt, err = time.Parse(time.RFC3339, at); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
