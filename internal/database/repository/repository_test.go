package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/keyledger/internal/database"
	"github.com/jask/keyledger/internal/database/repository"
	"github.com/jask/keyledger/internal/ledgererr"
)

func setupRepoTest(t *testing.T) (*sql.DB, context.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, database.RunMigrations(dbPath))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, ctx
}

func date(s string) time.Time {
	d, err := time.Parse(repository.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTransactionInsertAndNaturalKey(t *testing.T) {
	t.Parallel()
	db, ctx := setupRepoTest(t)
	repo := repository.NewTransactionRepo(db)

	tx := repository.Transaction{
		Date:          date("2024-01-05"),
		Details:       "Walmart",
		Amount:        decimal.RequireFromString("54.20"),
		DebitOrCredit: repository.Debit,
		Category:      "Uncategorized",
	}
	id, err := repo.Insert(ctx, tx)
	require.NoError(t, err)
	require.Positive(t, id)

	found, err := repo.FindByNaturalKey(ctx, tx.Key())
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, id, found.ID)
	require.True(t, found.Amount.Equal(decimal.RequireFromString("54.2")))
	require.Equal(t, "2024-01-05", found.Date.Format(repository.DateLayout))

	other := tx.Key()
	other.DebitOrCredit = repository.Credit
	missing, err := repo.FindByNaturalKey(ctx, other)
	require.NoError(t, err)
	require.Nil(t, missing)

	// the unique index backs the natural key
	_, err = repo.Insert(ctx, tx)
	require.Error(t, err)
}

func TestTransactionIDsAreNotReused(t *testing.T) {
	t.Parallel()
	db, ctx := setupRepoTest(t)
	repo := repository.NewTransactionRepo(db)

	base := repository.Transaction{Date: date("2024-02-01"), Amount: decimal.NewFromInt(1), DebitOrCredit: repository.Debit, Category: "Uncategorized"}
	base.Details = "first"
	first, err := repo.Insert(ctx, base)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, first)
	require.NoError(t, err)

	base.Details = "second"
	second, err := repo.Insert(ctx, base)
	require.NoError(t, err)
	require.Greater(t, second, first)
}

func TestUpdateCategory(t *testing.T) {
	t.Parallel()
	db, ctx := setupRepoTest(t)
	repo := repository.NewTransactionRepo(db)

	id, err := repo.Insert(ctx, repository.Transaction{
		Date: date("2024-03-01"), Details: "Netflix", Amount: decimal.NewFromInt(15),
		DebitOrCredit: repository.Debit, Category: "Uncategorized",
	})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateCategory(ctx, id, "Subscriptions"))
	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Subscriptions", got.Category)

	err = repo.UpdateCategory(ctx, id+100, "Subscriptions")
	require.True(t, errors.Is(err, ledgererr.ErrNotFound))

	missing, err := repo.Get(ctx, id+100)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestUpdateCategoriesInTx(t *testing.T) {
	t.Parallel()
	db, ctx := setupRepoTest(t)
	repo := repository.NewTransactionRepo(db)

	var ids []int64
	for _, d := range []string{"a", "b", "c"} {
		id, err := repo.Insert(ctx, repository.Transaction{
			Date: date("2024-03-01"), Details: d, Amount: decimal.NewFromInt(1),
			DebitOrCredit: repository.Debit, Category: "Uncategorized",
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		return repository.NewTransactionRepo(tx).UpdateCategories(ctx, []repository.CategoryUpdate{
			{ID: ids[0], Category: "X"},
			{ID: ids[2], Category: "Y"},
		})
	})
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "X", list[0].Category)
	require.Equal(t, "Uncategorized", list[1].Category)
	require.Equal(t, "Y", list[2].Category)

	// a failing batch leaves nothing behind
	err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := repository.NewTransactionRepo(tx).UpdateCategories(ctx, []repository.CategoryUpdate{{ID: ids[1], Category: "Z"}}); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	got, err := repo.Get(ctx, ids[1])
	require.NoError(t, err)
	require.Equal(t, "Uncategorized", got.Category)
}

func TestCategoryRepoIdempotent(t *testing.T) {
	t.Parallel()
	db, ctx := setupRepoTest(t)
	repo := repository.NewCategoryRepo(db)

	require.NoError(t, repo.Add(ctx, "Groceries"))
	require.NoError(t, repo.Add(ctx, "Groceries"))

	names, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Groceries", "Uncategorized"}, names)

	ok, err := repo.Exists(ctx, "Groceries")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestKeywordRepo(t *testing.T) {
	t.Parallel()
	db, ctx := setupRepoTest(t)
	cats := repository.NewCategoryRepo(db)
	kws := repository.NewKeywordRepo(db)

	// keywords reference categories
	_, err := kws.Add(ctx, "Nope", "x")
	require.Error(t, err)

	require.NoError(t, cats.Add(ctx, "Groceries"))
	require.NoError(t, cats.Add(ctx, "Subscriptions"))

	added, err := kws.Add(ctx, "Groceries", "walmart")
	require.NoError(t, err)
	require.True(t, added)
	added, err = kws.Add(ctx, "Groceries", "walmart")
	require.NoError(t, err)
	require.False(t, added)
	_, err = kws.Add(ctx, "Groceries", "costco")
	require.NoError(t, err)
	_, err = kws.Add(ctx, "Subscriptions", "walmart")
	require.NoError(t, err)

	list, err := kws.ForCategory(ctx, "Groceries")
	require.NoError(t, err)
	require.Equal(t, []string{"costco", "walmart"}, list)

	all, err := kws.All(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string][]string{
		"Groceries":     {"costco", "walmart"},
		"Subscriptions": {"walmart"},
	}, all)
}

func TestTotals(t *testing.T) {
	t.Parallel()
	db, ctx := setupRepoTest(t)
	repo := repository.NewTransactionRepo(db)

	rows := []repository.Transaction{
		{Date: date("2024-01-05"), Details: "a", Amount: decimal.RequireFromString("10.10"), DebitOrCredit: repository.Debit, Category: "Groceries"},
		{Date: date("2024-01-20"), Details: "b", Amount: decimal.RequireFromString("5.05"), DebitOrCredit: repository.Debit, Category: "Groceries"},
		{Date: date("2024-02-02"), Details: "c", Amount: decimal.RequireFromString("30"), DebitOrCredit: repository.Debit, Category: "Rent"},
		{Date: date("2024-02-03"), Details: "d", Amount: decimal.RequireFromString("100"), DebitOrCredit: repository.Credit, Category: "Uncategorized"},
	}
	for _, r := range rows {
		_, err := repo.Insert(ctx, r)
		require.NoError(t, err)
	}

	debits, err := repo.Total(ctx, repository.Debit)
	require.NoError(t, err)
	require.Equal(t, "45.15", debits.StringFixed(2))

	byCat, err := repo.SumByCategory(ctx, repository.Debit)
	require.NoError(t, err)
	require.Len(t, byCat, 2)
	require.Equal(t, "Rent", byCat[0].Category)
	require.Equal(t, "15.15", byCat[1].Total.StringFixed(2))

	byMonth, err := repo.SumByMonth(ctx, repository.Debit)
	require.NoError(t, err)
	require.Equal(t, []string{"2024-01", "2024-02"}, []string{byMonth[0].Month, byMonth[1].Month})

	empty, err := repository.NewTransactionRepo(db).Total(ctx, "None")
	require.NoError(t, err)
	require.True(t, empty.IsZero())
}

func TestImportBatchRepo(t *testing.T) {
	t.Parallel()
	db, ctx := setupRepoTest(t)
	repo := repository.NewImportBatchRepo(db)

	older := repository.ImportBatch{ID: "a", Source: "jan.csv", Accepted: 2, ImportedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := repository.ImportBatch{ID: "b", Source: "feb.csv", Duplicates: 2, Rejected: 1, ImportedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Add(ctx, older))
	require.NoError(t, repo.Add(ctx, newer))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "b", list[0].ID)
	require.Equal(t, "a", list[1].ID)
	require.Equal(t, 1, list[0].Rejected)
	require.True(t, list[1].ImportedAt.Equal(older.ImportedAt))
}

func TestImportBatchRepoSameSecondNewestFirst(t *testing.T) {
	t.Parallel()
	db, ctx := setupRepoTest(t)
	repo := repository.NewImportBatchRepo(db)

	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	// ids sort opposite to insertion order
	for _, id := range []string{"z", "m", "a"} {
		require.NoError(t, repo.Add(ctx, repository.ImportBatch{ID: id, Source: id + ".csv", ImportedAt: at}))
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []string{"a", "m", "z"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]repository.Direction{
		"Debit": repository.Debit, " credit ": repository.Credit, "DR": repository.Debit, "cr": repository.Credit,
	} {
		got, err := repository.ParseDirection(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}
	_, err := repository.ParseDirection("refund")
	require.Error(t, err)
	require.False(t, repository.Direction("refund").Valid())
}
