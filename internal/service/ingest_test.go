package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/keyledger/internal/categorize"
	"github.com/jask/keyledger/internal/database/repository"
	"github.com/jask/keyledger/internal/ledgererr"
)

func TestImportBatchIsIdempotent(t *testing.T) {
	t.Parallel()
	db, ctx := setupDB(t)
	svc := &IngestService{DB: db}

	batch := []Row{
		debit("2024-01-05", "Walmart", "54.20"),
		debit("2024-01-06", "Netflix.com", "15.49"),
		{Date: day("2024-01-07"), Details: "Salary", Amount: decimal.RequireFromString("2500"), DebitOrCredit: repository.Credit},
	}
	first, err := svc.ImportBatch(ctx, "jan.csv", batch)
	require.NoError(t, err)
	require.Len(t, first.Imported, 3)
	require.Zero(t, first.Duplicates)
	require.NotEmpty(t, first.BatchID)

	second, err := svc.ImportBatch(ctx, "jan.csv", batch)
	require.NoError(t, err)
	require.Empty(t, second.Imported)
	require.Equal(t, 3, second.Duplicates)
	require.Equal(t, 3, countTransactions(t, ctx, db))

	// a superset only adds the new row
	superset := append(append([]Row(nil), batch...), debit("2024-01-08", "Spotify", "9.99"))
	third, err := svc.ImportBatch(ctx, "jan-feb.csv", superset)
	require.NoError(t, err)
	require.Len(t, third.Imported, 1)
	require.Equal(t, 3, third.Duplicates)
	require.Equal(t, 4, countTransactions(t, ctx, db))

	history, err := (&Reporter{DB: db}).History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
}

func TestImportBatchDeduplicatesWithinBatch(t *testing.T) {
	t.Parallel()
	db, ctx := setupDB(t)
	svc := &IngestService{DB: db}

	row := debit("2024-01-05", "Coffee", "3.50")
	res, err := svc.ImportBatch(ctx, "dup.csv", []Row{row, row})
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)
	require.Equal(t, 1, res.Duplicates)
}

func TestImportBatchKeyUsesAllFourFields(t *testing.T) {
	t.Parallel()
	db, ctx := setupDB(t)
	svc := &IngestService{DB: db}

	base := debit("2024-01-05", "Coffee", "3.50")
	otherDay := debit("2024-01-06", "Coffee", "3.50")
	otherAmount := debit("2024-01-05", "Coffee", "3.75")
	otherCase := debit("2024-01-05", "COFFEE", "3.50")
	credit := base
	credit.DebitOrCredit = repository.Credit

	res, err := svc.ImportBatch(ctx, "x", []Row{base, otherDay, otherAmount, otherCase, credit})
	require.NoError(t, err)
	require.Len(t, res.Imported, 5)
}

func TestImportLabelsByExactMatchOnly(t *testing.T) {
	t.Parallel()
	db, ctx := setupDB(t)
	cat := &Categorizer{DB: db}
	svc := &IngestService{DB: db}

	_, err := cat.AddKeyword(ctx, "Groceries", "walmart")
	require.NoError(t, err)

	res, err := svc.ImportBatch(ctx, "jan.csv", []Row{
		debit("2024-01-05", "WALMART #221", "54.20"),
		debit("2024-01-06", "  Walmart ", "12.00"),
	})
	require.NoError(t, err)
	require.Len(t, res.Imported, 2)
	require.Equal(t, categorize.Uncategorized, res.Imported[0].Category)
	require.Equal(t, "Groceries", res.Imported[1].Category)

	// reconciliation is broader than import labelling
	changes, err := cat.ApplyKeyword(ctx, "Groceries", "walmart")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, res.Imported[0].ID, changes[0].ID)
	require.Equal(t, "Groceries", categoriesByDetails(t, ctx, db)["WALMART #221"])
}

func TestImportRejectsRowsIndividually(t *testing.T) {
	t.Parallel()
	db, ctx := setupDB(t)
	svc := &IngestService{DB: db}

	negative := debit("2024-01-05", "Refund", "-5")
	noDate := Row{Details: "Mystery", Amount: decimal.NewFromInt(1), DebitOrCredit: repository.Debit}
	noDetails := debit("2024-01-05", "   ", "1")
	badDirection := Row{Date: day("2024-01-05"), Details: "Odd", Amount: decimal.NewFromInt(1), DebitOrCredit: "Sideways"}
	good := debit("2024-01-05", "Bakery", "4.10")

	res, err := svc.ImportBatch(ctx, "mixed.csv", []Row{negative, noDate, good, noDetails, badDirection})
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)
	require.Equal(t, "Bakery", res.Imported[0].Details)
	require.Len(t, res.Rejected, 4)

	require.True(t, ledgererr.IsIntegrity(res.Rejected[0]))
	for _, e := range res.Rejected[1:] {
		require.True(t, ledgererr.IsValidation(e), e.Error())
	}
	require.Contains(t, res.Rejected[1].Error(), "row 2")
	require.Equal(t, 1, countTransactions(t, ctx, db))

	history, err := (&Reporter{DB: db}).History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, 4, history[0].Rejected)
	require.Equal(t, 1, history[0].Accepted)
}

func TestImportBatchCountsCallerRejections(t *testing.T) {
	t.Parallel()
	db, ctx := setupDB(t)
	svc := &IngestService{DB: db}

	parseErr := &ledgererr.ValidationError{Row: 5, Field: "amount", Value: "abc", Reason: "invalid amount"}
	res, err := svc.ImportBatch(ctx, "s.csv", []Row{
		debit("2024-01-05", "Bakery", "4.10"),
		debit("2024-01-06", "   ", "1"),
	}, parseErr)
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)
	require.Len(t, res.Rejected, 2)
	require.Same(t, parseErr, res.Rejected[0])

	history, err := (&Reporter{DB: db}).History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, 2, history[0].Rejected)
}

func TestAddManual(t *testing.T) {
	t.Parallel()
	db, ctx := setupDB(t)
	cat := &Categorizer{DB: db}
	svc := &IngestService{DB: db}

	_, err := cat.AddKeyword(ctx, "Groceries", "walmart")
	require.NoError(t, err)

	labelled, added, err := svc.AddManual(ctx, debit("2024-01-05", "Walmart", "10"), "")
	require.NoError(t, err)
	require.True(t, added)
	require.Equal(t, "Groceries", labelled.Category)

	explicit, added, err := svc.AddManual(ctx, debit("2024-01-06", "Gift shop", "25"), "Gifts")
	require.NoError(t, err)
	require.True(t, added)
	require.Equal(t, "Gifts", explicit.Category)

	cats, err := cat.ListCategories(ctx)
	require.NoError(t, err)
	require.Contains(t, cats, "Gifts")

	again, added, err := svc.AddManual(ctx, debit("2024-01-06", "Gift shop", "25"), "Other")
	require.NoError(t, err)
	require.False(t, added)
	require.Equal(t, explicit.ID, again.ID)
	require.Equal(t, "Gifts", again.Category)

	_, _, err = svc.AddManual(ctx, debit("2024-01-06", "Oops", "-1"), "")
	require.True(t, ledgererr.IsIntegrity(err))
}

func TestEndToEndScenario(t *testing.T) {
	t.Parallel()
	db, ctx := setupDB(t)
	cat := &Categorizer{DB: db}
	svc := &IngestService{DB: db}

	row := debit("2024-01-05", "Walmart", "54.20")
	res, err := svc.ImportBatch(ctx, "jan.csv", []Row{row})
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)
	require.Equal(t, categorize.Uncategorized, res.Imported[0].Category)

	kw, err := cat.AddKeyword(ctx, "Groceries", "walmart")
	require.NoError(t, err)
	require.True(t, kw.Added)
	require.Len(t, kw.Changes, 1)

	res, err = svc.ImportBatch(ctx, "jan.csv", []Row{row})
	require.NoError(t, err)
	require.Empty(t, res.Imported)
	require.Equal(t, 1, res.Duplicates)

	txs, err := (&Reporter{DB: db}).LoadTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, "Groceries", txs[0].Category)
	require.Equal(t, "2024-01-05", txs[0].Date.Format(repository.DateLayout))
	require.True(t, txs[0].Amount.Equal(decimal.RequireFromString("54.2")))
}
