package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/keyledger/internal/ledgererr"
)

const transactionColumns = "id, date, details, amount, debit_or_credit, category"

// CategoryUpdate sets the category of one transaction.
type CategoryUpdate struct {
	ID       int64
	Category string
}

// TransactionRepo handles transactions.
type TransactionRepo struct {
	db Querier
}

func NewTransactionRepo(db Querier) *TransactionRepo { return &TransactionRepo{db: db} }

// Insert stores t and returns the id assigned by sqlite.
func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO transactions(date, details, amount, debit_or_credit, category)
	VALUES(?, ?, ?, ?, ?);
	`, t.Date.Format(DateLayout), t.Details, t.Amount.InexactFloat64(), string(t.DebitOrCredit), t.Category)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FindByNaturalKey returns the stored transaction sharing k, or nil.
func (r *TransactionRepo) FindByNaturalKey(ctx context.Context, k NaturalKey) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions
	WHERE date = ? AND amount = ? AND debit_or_credit = ? AND details = ?`,
		k.Date.Format(DateLayout), k.Amount.InexactFloat64(), string(k.DebitOrCredit), k.Details)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) Get(ctx context.Context, id int64) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// List returns every transaction ordered by id.
func (r *TransactionRepo) List(ctx context.Context) ([]Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateCategory sets the category of a single transaction.
func (r *TransactionRepo) UpdateCategory(ctx context.Context, id int64, category string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET category = ? WHERE id = ?`, category, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, ledgererr.ErrNotFound)
	}
	return nil
}

// UpdateCategories applies a batch of category updates with one prepared
// statement. Run it inside a transaction to make the batch atomic.
func (r *TransactionRepo) UpdateCategories(ctx context.Context, updates []CategoryUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	stmt, err := r.db.PrepareContext(ctx, `UPDATE transactions SET category = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, u.Category, u.ID); err != nil {
			return fmt.Errorf("update transaction %d: %w", u.ID, err)
		}
	}
	return nil
}

// Total sums the amounts of one direction.
func (r *TransactionRepo) Total(ctx context.Context, dir Direction) (decimal.Decimal, error) {
	var total sql.NullFloat64
	row := r.db.QueryRowContext(ctx, `SELECT SUM(amount) FROM transactions WHERE debit_or_credit = ?`, string(dir))
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return money(total.Float64), nil
}

// SumByCategory returns totals per category for one direction, largest first.
func (r *TransactionRepo) SumByCategory(ctx context.Context, dir Direction) ([]CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT COALESCE(category, 'Uncategorized'), SUM(amount) AS total
	FROM transactions
	WHERE debit_or_credit = ?
	GROUP BY COALESCE(category, 'Uncategorized')
	ORDER BY total DESC, 1 ASC;
	`, string(dir))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		var total float64
		if err := rows.Scan(&ct.Category, &total); err != nil {
			return nil, err
		}
		ct.Total = money(total)
		out = append(out, ct)
	}
	return out, rows.Err()
}

// SumByMonth returns totals per YYYY-MM for one direction, oldest first.
func (r *TransactionRepo) SumByMonth(ctx context.Context, dir Direction) ([]MonthTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT substr(date, 1, 7) AS month, SUM(amount)
	FROM transactions
	WHERE debit_or_credit = ?
	GROUP BY month
	ORDER BY month ASC;
	`, string(dir))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MonthTotal
	for rows.Next() {
		var mt MonthTotal
		var total float64
		if err := rows.Scan(&mt.Month, &total); err != nil {
			return nil, err
		}
		mt.Total = money(total)
		out = append(out, mt)
	}
	return out, rows.Err()
}

// money converts a REAL column back to a decimal rounded to cents.
func money(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

// scanner covers both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var date, details, direction, category sql.NullString
	var amount sql.NullFloat64
	if err := row.Scan(&t.ID, &date, &details, &amount, &direction, &category); err != nil {
		return Transaction{}, err
	}
	if date.Valid {
		d, err := time.Parse(DateLayout, date.String)
		if err != nil {
			return Transaction{}, fmt.Errorf("transaction %d: bad date %q: %w", t.ID, date.String, err)
		}
		t.Date = d
	}
	t.Details = details.String
	t.Amount = decimal.NewFromFloat(amount.Float64)
	t.DebitOrCredit = Direction(direction.String)
	t.Category = category.String
	if !category.Valid {
		t.Category = "Uncategorized"
	}
	return t, nil
}
