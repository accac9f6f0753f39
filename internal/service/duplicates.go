package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/jask/keyledger/internal/database/repository"
)

// DuplicateFinder flags stored transactions that look like the same charge
// imported twice under slightly different details. It never modifies the store.
type DuplicateFinder struct {
	DB               *sql.DB
	WindowDays       int
	MaxDistanceRatio float64
}

// DuplicatePair is a suspected duplicate, A always has the lower id.
type DuplicatePair struct {
	A          repository.Transaction
	B          repository.Transaction
	DaysApart  int
	Similarity float64
}

// Find returns candidate pairs, most similar first.
func (f *DuplicateFinder) Find(ctx context.Context) ([]DuplicatePair, error) {
	txs, err := repository.NewTransactionRepo(f.DB).List(ctx)
	if err != nil {
		return nil, err
	}
	var out []DuplicatePair
	for i := 0; i < len(txs); i++ {
		for j := i + 1; j < len(txs); j++ {
			a, b := txs[i], txs[j]
			if !f.candidate(a, b) {
				continue
			}
			out = append(out, DuplicatePair{A: a, B: b, DaysApart: daysApart(a.Date, b.Date), Similarity: similarity(a.Details, b.Details)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	return out, nil
}

func (f *DuplicateFinder) candidate(a, b repository.Transaction) bool {
	if a.DebitOrCredit != b.DebitOrCredit || !a.Amount.Equal(b.Amount) {
		return false
	}
	if daysApart(a.Date, b.Date) > f.WindowDays {
		return false
	}
	return distanceRatio(a.Details, b.Details) < f.MaxDistanceRatio
}

// distanceRatio is the edit distance of the upper-cased strings over the
// longer length; 1 for two empty strings.
func distanceRatio(a, b string) float64 {
	a, b = strings.ToUpper(strings.TrimSpace(a)), strings.ToUpper(strings.TrimSpace(b))
	maxlen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxlen == 0 {
		return 1
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(maxlen)
}

func similarity(a, b string) float64 {
	return 1 - distanceRatio(a, b)
}

func daysApart(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
