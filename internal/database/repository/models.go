package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is how transaction dates are stored.
const DateLayout = time.DateOnly

// Direction tells whether money left (Debit) or entered (Credit) the account.
type Direction string

const (
	Debit  Direction = "Debit"
	Credit Direction = "Credit"
)

// Valid reports whether d is Debit or Credit.
func (d Direction) Valid() bool {
	return d == Debit || d == Credit
}

// ParseDirection accepts "debit"/"credit" in any case, plus the "dr"/"cr"
// shorthands some banks export.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debit", "dr":
		return Debit, nil
	case "credit", "cr":
		return Credit, nil
	}
	return "", fmt.Errorf("unknown debit/credit value %q", s)
}

// Transaction represents a transaction row.
type Transaction struct {
	ID            int64
	Date          time.Time
	Details       string
	Amount        decimal.Decimal
	DebitOrCredit Direction
	Category      string
}

// NaturalKey is the tuple two stored transactions may never share.
type NaturalKey struct {
	Date          time.Time
	Amount        decimal.Decimal
	DebitOrCredit Direction
	Details       string
}

// Key returns the natural key of t.
func (t Transaction) Key() NaturalKey {
	return NaturalKey{Date: t.Date, Amount: t.Amount, DebitOrCredit: t.DebitOrCredit, Details: t.Details}
}

// Keyword is one dictionary entry.
type Keyword struct {
	Category string
	Keyword  string
}

// ImportBatch is the audit record of one import call.
type ImportBatch struct {
	ID         string
	Source     string
	Accepted   int
	Duplicates int
	Rejected   int
	ImportedAt time.Time
}

// CategoryTotal is a summed amount per category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// MonthTotal is a summed amount per calendar month (YYYY-MM).
type MonthTotal struct {
	Month string
	Total decimal.Decimal
}
