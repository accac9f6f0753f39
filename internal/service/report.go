package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jask/keyledger/internal/database"
	"github.com/jask/keyledger/internal/database/repository"
)

// Reporter serves read-only views of the ledger.
type Reporter struct {
	DB *sql.DB
}

// Summary holds the dashboard numbers.
type Summary struct {
	Debits     decimal.Decimal
	Credits    decimal.Decimal
	ByCategory []repository.CategoryTotal
	ByMonth    []repository.MonthTotal
}

// LoadTransactions returns every stored transaction ordered by id.
func (r *Reporter) LoadTransactions(ctx context.Context) ([]repository.Transaction, error) {
	return repository.NewTransactionRepo(r.DB).List(ctx)
}

// Summary computes debit totals per category and month plus both overall
// totals from a single consistent read.
func (r *Reporter) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	err := database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		repo := repository.NewTransactionRepo(tx)
		var err error
		if s.Debits, err = repo.Total(ctx, repository.Debit); err != nil {
			return err
		}
		if s.Credits, err = repo.Total(ctx, repository.Credit); err != nil {
			return err
		}
		if s.ByCategory, err = repo.SumByCategory(ctx, repository.Debit); err != nil {
			return err
		}
		s.ByMonth, err = repo.SumByMonth(ctx, repository.Debit)
		return err
	})
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	return s, nil
}

// History lists import batches, newest first.
func (r *Reporter) History(ctx context.Context) ([]repository.ImportBatch, error) {
	return repository.NewImportBatchRepo(r.DB).List(ctx)
}
