package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/keyledger/internal/categorize"
	"github.com/jask/keyledger/internal/database/repository"
)

func TestSummary(t *testing.T) {
	t.Parallel()
	db, ctx := setupDB(t)
	svc := &IngestService{DB: db}

	_, err := svc.ImportBatch(ctx, "q1.csv", []Row{
		debit("2024-01-05", "Walmart", "54.20"),
		debit("2024-01-20", "Rent", "1000"),
		debit("2024-02-03", "Walmart", "45.80"),
		{Date: day("2024-02-01"), Details: "Salary", Amount: decimal.NewFromInt(2500), DebitOrCredit: repository.Credit},
	})
	require.NoError(t, err)
	_, err = (&Categorizer{DB: db}).AddKeyword(ctx, "Groceries", "walmart")
	require.NoError(t, err)

	s, err := (&Reporter{DB: db}).Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, "1100.00", s.Debits.StringFixed(2))
	require.Equal(t, "2500.00", s.Credits.StringFixed(2))

	require.Len(t, s.ByCategory, 2)
	require.Equal(t, categorize.Uncategorized, s.ByCategory[0].Category)
	require.Equal(t, "Groceries", s.ByCategory[1].Category)
	require.Equal(t, "100.00", s.ByCategory[1].Total.StringFixed(2))

	require.Len(t, s.ByMonth, 2)
	require.Equal(t, "2024-01", s.ByMonth[0].Month)
	require.Equal(t, "1054.20", s.ByMonth[0].Total.StringFixed(2))
}

func TestResetKeepsIDsIncreasing(t *testing.T) {
	t.Parallel()
	db, ctx := setupDB(t)
	svc := &IngestService{DB: db}

	first, err := svc.ImportBatch(ctx, "a.csv", []Row{debit("2024-01-05", "Walmart", "1")})
	require.NoError(t, err)
	_, err = (&Categorizer{DB: db}).AddKeyword(ctx, "Groceries", "walmart")
	require.NoError(t, err)

	m := &MaintenanceService{DB: db, Defaults: []string{"Rent"}}
	require.NoError(t, m.Reset(ctx))

	require.Zero(t, countTransactions(t, ctx, db))
	cats, err := (&Categorizer{DB: db}).ListCategories(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Rent", categorize.Uncategorized}, cats)
	history, err := (&Reporter{DB: db}).History(ctx)
	require.NoError(t, err)
	require.Empty(t, history)

	second, err := svc.ImportBatch(ctx, "a.csv", []Row{debit("2024-01-05", "Walmart", "1")})
	require.NoError(t, err)
	require.Len(t, second.Imported, 1)
	require.Greater(t, second.Imported[0].ID, first.Imported[0].ID)
	require.Equal(t, categorize.Uncategorized, second.Imported[0].Category)
}
