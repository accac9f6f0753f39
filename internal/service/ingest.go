package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/jask/keyledger/internal/categorize"
	"github.com/jask/keyledger/internal/database"
	"github.com/jask/keyledger/internal/database/repository"
	"github.com/jask/keyledger/internal/ledgererr"
	"github.com/jask/keyledger/internal/logging"
)

// IngestService imports statement rows and manual entries.
type IngestService struct {
	DB  *sql.DB
	Log logrus.FieldLogger
}

// Row is an already parsed input row. Line is the position reported back
// in validation errors; zero means "index in batch + 1".
type Row struct {
	Line          int
	Date          time.Time
	Details       string
	Amount        decimal.Decimal
	DebitOrCredit repository.Direction
}

// IngestResult partitions a batch into accepted, duplicate and rejected rows.
type IngestResult struct {
	BatchID    string
	Imported   []repository.Transaction
	Duplicates int
	Rejected   []error
}

// transaction validates r and converts it to the stored shape.
func (r Row) transaction(line int) (repository.Transaction, error) {
	if r.Date.IsZero() {
		return repository.Transaction{}, &ledgererr.ValidationError{Row: line, Field: "date", Reason: "missing"}
	}
	if strings.TrimSpace(r.Details) == "" {
		return repository.Transaction{}, &ledgererr.ValidationError{Row: line, Field: "details", Reason: "missing"}
	}
	if !r.DebitOrCredit.Valid() {
		return repository.Transaction{}, &ledgererr.ValidationError{Row: line, Field: "debit/credit", Value: string(r.DebitOrCredit), Reason: "must be Debit or Credit"}
	}
	if r.Amount.IsNegative() {
		return repository.Transaction{}, &ledgererr.IntegrityError{Entity: "transaction", Reason: fmt.Sprintf("row %d: negative amount %s", line, r.Amount)}
	}
	return repository.Transaction{
		Date:          database.DateOnly(r.Date),
		Details:       r.Details,
		Amount:        r.Amount,
		DebitOrCredit: r.DebitOrCredit,
		Category:      categorize.Uncategorized,
	}, nil
}

func (s *IngestService) log() logrus.FieldLogger { return logging.OrDiscard(s.Log) }

// ImportBatch stores every valid row whose natural key is not already taken
// and labels it by exact keyword match. Invalid rows are reported in the
// result without stopping the batch; a store failure rolls the whole batch
// back. The dictionary is read once, so all rows see the same snapshot.
//
// rejected carries rows the caller already failed to parse. They are
// reported and counted in the batch record ahead of the rows rejected here.
func (s *IngestService) ImportBatch(ctx context.Context, source string, rows []Row, rejected ...error) (IngestResult, error) {
	res := IngestResult{BatchID: uuid.NewString()}
	res.Rejected = append(res.Rejected, rejected...)
	log := s.log().WithFields(logrus.Fields{logging.FieldBatchID: res.BatchID, logging.FieldSource: source})

	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		entries, err := repository.NewKeywordRepo(tx).All(ctx)
		if err != nil {
			return fmt.Errorf("load dictionary: %w", err)
		}
		dict := categorize.NewDictionary(entries)
		txRepo := repository.NewTransactionRepo(tx)

		for i, row := range rows {
			line := row.Line
			if line == 0 {
				line = i + 1
			}
			t, err := row.transaction(line)
			if err != nil {
				log.WithField(logging.FieldRow, line).WithError(err).Warn("Rejected row")
				res.Rejected = append(res.Rejected, err)
				continue
			}
			existing, err := txRepo.FindByNaturalKey(ctx, t.Key())
			if err != nil {
				return fmt.Errorf("row %d: dedup lookup: %w", line, err)
			}
			if existing != nil {
				res.Duplicates++
				continue
			}
			t.Category = categorize.LabelNew(t.Details, dict)
			id, err := txRepo.Insert(ctx, t)
			if err != nil {
				return fmt.Errorf("row %d: insert: %w", line, err)
			}
			t.ID = id
			res.Imported = append(res.Imported, t)
		}

		return repository.NewImportBatchRepo(tx).Add(ctx, repository.ImportBatch{
			ID:         res.BatchID,
			Source:     source,
			Accepted:   len(res.Imported),
			Duplicates: res.Duplicates,
			Rejected:   len(res.Rejected),
			ImportedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return IngestResult{}, fmt.Errorf("import batch: %w", err)
	}

	log.WithFields(logrus.Fields{
		logging.FieldImported:   len(res.Imported),
		logging.FieldDuplicates: res.Duplicates,
		logging.FieldRejected:   len(res.Rejected),
	}).Info("Import batch complete")
	return res, nil
}

// AddManual stores a single hand-entered transaction. An empty category
// means "label it like an import"; any other value is stored as given and
// registered on the fly. When the natural key already exists the stored
// row is returned with added=false.
func (s *IngestService) AddManual(ctx context.Context, row Row, category string) (t repository.Transaction, added bool, err error) {
	t, err = row.transaction(1)
	if err != nil {
		return repository.Transaction{}, false, err
	}
	category = strings.TrimSpace(category)

	err = database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		txRepo := repository.NewTransactionRepo(tx)
		existing, err := txRepo.FindByNaturalKey(ctx, t.Key())
		if err != nil {
			return err
		}
		if existing != nil {
			t = *existing
			return nil
		}

		if category == "" {
			entries, err := repository.NewKeywordRepo(tx).All(ctx)
			if err != nil {
				return fmt.Errorf("load dictionary: %w", err)
			}
			t.Category = categorize.LabelNew(t.Details, categorize.NewDictionary(entries))
		} else {
			if _, err := ensureCategory(ctx, tx, category); err != nil {
				return err
			}
			t.Category = category
		}

		id, err := txRepo.Insert(ctx, t)
		if err != nil {
			return err
		}
		t.ID = id
		added = true
		return nil
	})
	if err != nil {
		return repository.Transaction{}, false, fmt.Errorf("add transaction: %w", err)
	}
	if added {
		s.log().WithFields(logrus.Fields{
			logging.FieldTransactionID: t.ID,
			logging.FieldCategory:      t.Category,
		}).Info("Added transaction")
	}
	return t, added, nil
}
