// Package sample generates sample statements for demos and manual testing.
package sample

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/keyledger/internal/database"
	"github.com/jask/keyledger/internal/database/repository"
	"github.com/jask/keyledger/internal/service"
)

type merchant struct {
	details  string
	min, max int64 // cents
	dir      repository.Direction
}

var merchants = []merchant{
	{"UBER EATS* SUSHI", 1500, 6000, repository.Debit},
	{"AMAZON.COM*XYZ", 900, 25000, repository.Debit},
	{"AMAZON PRIME*2K4", 1499, 1499, repository.Debit},
	{"WOOLWORTHS", 2000, 18000, repository.Debit},
	{"Walmart", 1000, 15000, repository.Debit},
	{"SPOTIFY P0A1", 999, 999, repository.Debit},
	{"NETFLIX.COM 866-579", 1549, 1549, repository.Debit},
	{"SHELL OIL 5521", 3000, 9000, repository.Debit},
	{"SALARY ACME", 250000, 250000, repository.Credit},
}

// SampleDictionary is a starter keyword set matching the generated merchants.
func SampleDictionary() []repository.Keyword {
	return []repository.Keyword{
		{Category: "Food", Keyword: "uber eats"},
		{Category: "Groceries", Keyword: "walmart"},
		{Category: "Groceries", Keyword: "woolworths"},
		{Category: "Shopping", Keyword: "amazon"},
		{Category: "Subscriptions", Keyword: "amazon prime"},
		{Category: "Subscriptions", Keyword: "netflix"},
		{Category: "Subscriptions", Keyword: "spotify"},
		{Category: "Transport", Keyword: "shell oil"},
		{Category: "Income", Keyword: "salary"},
	}
}

// Rows returns n statement rows dated in the days before end. The same seed
// always yields the same rows.
func Rows(n int, seed int64, end time.Time) []service.Row {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]service.Row, 0, n)
	for i := 0; i < n; i++ {
		m := merchants[rng.Intn(len(merchants))]
		cents := m.min
		if m.max > m.min {
			cents += rng.Int63n(m.max - m.min + 1)
		}
		rows = append(rows, service.Row{
			Line:          i + 1,
			Date:          end.AddDate(0, 0, -rng.Intn(60)),
			Details:       m.details,
			Amount:        decimal.New(cents, -2),
			DebitOrCredit: m.dir,
		})
	}
	return rows
}

// Seed imports n generated rows, registers SampleDictionary and reapplies it.
func Seed(ctx context.Context, ingest *service.IngestService, cat *service.Categorizer, n int, seed int64) (service.IngestResult, error) {
	res, err := ingest.ImportBatch(ctx, "sample", Rows(n, seed, database.Today()))
	if err != nil {
		return service.IngestResult{}, err
	}
	if _, err := cat.AddKeywords(ctx, SampleDictionary()); err != nil {
		return service.IngestResult{}, err
	}
	if _, err := cat.ReapplyAll(ctx); err != nil {
		return service.IngestResult{}, err
	}
	return res, nil
}
