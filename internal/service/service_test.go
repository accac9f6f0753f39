package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/keyledger/internal/database"
	"github.com/jask/keyledger/internal/database/repository"
)

func setupDB(t *testing.T) (*sql.DB, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	require.NoError(t, database.RunMigrations(dbPath))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.SeedDefaults(ctx, db, nil))
	return db, ctx
}

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func debit(date, details, amount string) Row {
	return Row{Date: day(date), Details: details, Amount: decimal.RequireFromString(amount), DebitOrCredit: repository.Debit}
}

func categoriesByDetails(t *testing.T, ctx context.Context, db *sql.DB) map[string]string {
	t.Helper()
	txs, err := repository.NewTransactionRepo(db).List(ctx)
	require.NoError(t, err)
	out := make(map[string]string, len(txs))
	for _, tx := range txs {
		out[tx.Details] = tx.Category
	}
	return out
}

func countTransactions(t *testing.T, ctx context.Context, db *sql.DB) int {
	t.Helper()
	txs, err := repository.NewTransactionRepo(db).List(ctx)
	require.NoError(t, err)
	return len(txs)
}
