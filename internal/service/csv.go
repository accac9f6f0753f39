package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/jask/keyledger/internal/database/repository"
	"github.com/jask/keyledger/internal/ledgererr"
)

// Column names of a bank statement export.
const (
	ColumnDate          = "Date"
	ColumnDetails       = "Details"
	ColumnAmount        = "Amount"
	ColumnDebitOrCredit = "Debit/Credit"
)

// DefaultDateLayout matches dates such as "05 Jan 2024".
const DefaultDateLayout = "02 Jan 2006"

// CSVOptions controls how a statement file is read.
type CSVOptions struct {
	DateLayout string
	Delimiter  rune
}

type statementRecord struct {
	Date          string `csv:"Date"`
	Details       string `csv:"Details"`
	Amount        string `csv:"Amount"`
	DebitOrCredit string `csv:"Debit/Credit"`
}

// recordsReader feeds already split records to gocsv.
type recordsReader struct {
	records [][]string
	pos     int
}

func (r *recordsReader) Read() ([]string, error) {
	if r.pos >= len(r.records) {
		return nil, io.EOF
	}
	rec := r.records[r.pos]
	r.pos++
	return rec, nil
}

func (r *recordsReader) ReadAll() ([][]string, error) {
	rest := r.records[r.pos:]
	r.pos = len(r.records)
	return rest, nil
}

// ReadStatementCSV parses a statement with the columns Date, Details, Amount
// and Debit/Credit (header cells are trimmed, extra columns ignored).
// Unparseable rows come back as ValidationErrors next to the good rows; the
// returned error is only set when the file as a whole cannot be read.
func ReadStatementCSV(r io.Reader, opts CSVOptions) ([]Row, []error, error) {
	if opts.DateLayout == "" {
		opts.DateLayout = DefaultDateLayout
	}
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read statement: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("read statement: file is empty")
	}

	header := records[0]
	present := make(map[string]bool, len(header))
	for i, cell := range header {
		cell = strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
		header[i] = cell
		present[cell] = true
	}
	var missing []string
	for _, col := range []string{ColumnDate, ColumnDetails, ColumnAmount, ColumnDebitOrCredit} {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("read statement: missing columns %s", strings.Join(missing, ", "))
	}

	var parsed []*statementRecord
	if len(records) > 1 {
		if err := gocsv.UnmarshalCSV(&recordsReader{records: records}, &parsed); err != nil {
			return nil, nil, fmt.Errorf("read statement: %w", err)
		}
	}

	var rows []Row
	var rejected []error
	for i, rec := range parsed {
		line := i + 2 // header is line 1
		if rec.blank() {
			continue
		}
		row, err := rec.row(line, opts.DateLayout)
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, rejected, nil
}

func (rec *statementRecord) blank() bool {
	return strings.TrimSpace(rec.Date+rec.Details+rec.Amount+rec.DebitOrCredit) == ""
}

func (rec *statementRecord) row(line int, layout string) (Row, error) {
	dateStr := strings.TrimSpace(rec.Date)
	if dateStr == "" {
		return Row{}, &ledgererr.ValidationError{Row: line, Field: "date", Reason: "missing"}
	}
	date, err := time.Parse(layout, dateStr)
	if err != nil {
		return Row{}, &ledgererr.ValidationError{Row: line, Field: "date", Value: dateStr, Reason: "expected layout " + layout}
	}

	details := strings.TrimSpace(rec.Details)
	if details == "" {
		return Row{}, &ledgererr.ValidationError{Row: line, Field: "details", Reason: "missing"}
	}

	amountStr := strings.ReplaceAll(strings.TrimSpace(rec.Amount), ",", "")
	if amountStr == "" {
		return Row{}, &ledgererr.ValidationError{Row: line, Field: "amount", Reason: "missing"}
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Row{}, &ledgererr.ValidationError{Row: line, Field: "amount", Value: rec.Amount, Reason: "not a number"}
	}

	dir, err := repository.ParseDirection(rec.DebitOrCredit)
	if err != nil {
		return Row{}, &ledgererr.ValidationError{Row: line, Field: "debit/credit", Value: rec.DebitOrCredit, Reason: "must be Debit or Credit"}
	}

	return Row{Line: line, Date: date, Details: details, Amount: amount, DebitOrCredit: dir}, nil
}

type exportRecord struct {
	ID            int64  `csv:"ID"`
	Date          string `csv:"Date"`
	Details       string `csv:"Details"`
	Amount        string `csv:"Amount"`
	DebitOrCredit string `csv:"Debit/Credit"`
	Category      string `csv:"Category"`
}

// WriteTransactionsCSV writes txs with a header row. Dates use layout.
func WriteTransactionsCSV(w io.Writer, txs []repository.Transaction, layout string, delimiter rune) error {
	if layout == "" {
		layout = DefaultDateLayout
	}
	out := make([]*exportRecord, 0, len(txs))
	for _, t := range txs {
		out = append(out, &exportRecord{
			ID:            t.ID,
			Date:          t.Date.Format(layout),
			Details:       t.Details,
			Amount:        t.Amount.StringFixed(2),
			DebitOrCredit: string(t.DebitOrCredit),
			Category:      t.Category,
		})
	}
	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}
	if err := gocsv.MarshalCSV(out, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("write transactions csv: %w", err)
	}
	return nil
}
