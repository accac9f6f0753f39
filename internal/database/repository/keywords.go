package repository

import (
	"context"
)

// KeywordRepo stores the keyword dictionary.
type KeywordRepo struct{ db Querier }

func NewKeywordRepo(db Querier) *KeywordRepo { return &KeywordRepo{db: db} }

// Add inserts the pair and reports whether it was new. The category must
// already exist.
func (r *KeywordRepo) Add(ctx context.Context, category, keyword string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT OR IGNORE INTO keywords(category, keyword) VALUES(?, ?)
	`, category, keyword)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ForCategory returns the keywords of one category, sorted.
func (r *KeywordRepo) ForCategory(ctx context.Context, category string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT keyword FROM keywords WHERE category = ? ORDER BY keyword`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, err
		}
		out = append(out, kw)
	}
	return out, rows.Err()
}

// List returns every pair ordered by category then keyword.
func (r *KeywordRepo) List(ctx context.Context) ([]Keyword, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, keyword FROM keywords ORDER BY category, keyword`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Keyword
	for rows.Next() {
		var k Keyword
		if err := rows.Scan(&k.Category, &k.Keyword); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// All returns the dictionary as category -> keywords.
func (r *KeywordRepo) All(ctx context.Context) (map[string][]string, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, k := range list {
		out[k.Category] = append(out[k.Category], k.Keyword)
	}
	return out, nil
}
