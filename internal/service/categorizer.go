package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jask/keyledger/internal/categorize"
	"github.com/jask/keyledger/internal/database"
	"github.com/jask/keyledger/internal/database/repository"
	"github.com/jask/keyledger/internal/ledgererr"
	"github.com/jask/keyledger/internal/logging"
)

// Categorizer owns the category registry, the keyword dictionary and the
// reconciliation of stored transactions against it. Every exported method
// runs in its own database transaction.
type Categorizer struct {
	DB  *sql.DB
	Log logrus.FieldLogger
}

// KeywordResult reports what one keyword registration did.
type KeywordResult struct {
	Category string
	Keyword  string
	Added    bool
	Changes  []categorize.Change
}

func (c *Categorizer) log() logrus.FieldLogger { return logging.OrDiscard(c.Log) }

// AddCategory registers name. Registering an existing name is a no-op.
func (c *Categorizer) AddCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ledgererr.IntegrityError{Entity: "category", Reason: "name is empty"}
	}
	return database.WithTx(ctx, c.DB, func(tx *sql.Tx) error {
		return repository.NewCategoryRepo(tx).Add(ctx, name)
	})
}

// ListCategories returns every registered category, sorted.
func (c *Categorizer) ListCategories(ctx context.Context) ([]string, error) {
	return repository.NewCategoryRepo(c.DB).List(ctx)
}

// Keywords returns every dictionary entry ordered by category and keyword.
func (c *Categorizer) Keywords(ctx context.Context) ([]repository.Keyword, error) {
	return repository.NewKeywordRepo(c.DB).List(ctx)
}

// Dictionary returns a snapshot of the keyword dictionary.
func (c *Categorizer) Dictionary(ctx context.Context) (categorize.Dictionary, error) {
	return loadDictionary(ctx, c.DB)
}

// AddKeyword normalizes keyword, creates category if needed, stores the
// pair and applies it to the stored transactions.
func (c *Categorizer) AddKeyword(ctx context.Context, category, keyword string) (KeywordResult, error) {
	var res KeywordResult
	err := database.WithTx(ctx, c.DB, func(tx *sql.Tx) error {
		var err error
		res, err = addKeyword(ctx, tx, category, keyword)
		return err
	})
	if err != nil {
		return KeywordResult{}, fmt.Errorf("add keyword: %w", err)
	}
	c.logKeyword(res)
	return res, nil
}

// AddKeywords registers several entries in one transaction, sorted by
// category then keyword so the outcome does not depend on input order.
func (c *Categorizer) AddKeywords(ctx context.Context, entries []repository.Keyword) ([]KeywordResult, error) {
	sorted := append([]repository.Keyword(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Category != sorted[j].Category {
			return sorted[i].Category < sorted[j].Category
		}
		return sorted[i].Keyword < sorted[j].Keyword
	})

	var results []KeywordResult
	err := database.WithTx(ctx, c.DB, func(tx *sql.Tx) error {
		for _, e := range sorted {
			res, err := addKeyword(ctx, tx, e.Category, e.Keyword)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", e.Category, e.Keyword, err)
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add keywords: %w", err)
	}
	for _, res := range results {
		c.logKeyword(res)
	}
	return results, nil
}

func (c *Categorizer) logKeyword(res KeywordResult) {
	c.log().WithFields(logrus.Fields{
		logging.FieldCategory: res.Category,
		logging.FieldKeyword:  res.Keyword,
		logging.FieldCount:    len(res.Changes),
	}).Info("Keyword applied")
}

// ApplyKeyword moves into category every transaction whose details equal
// keyword, and every one whose details contain any keyword of category.
// An unknown category is registered first.
func (c *Categorizer) ApplyKeyword(ctx context.Context, category, keyword string) ([]categorize.Change, error) {
	category, keyword, err := checkKeyword(category, keyword)
	if err != nil {
		return nil, err
	}
	var changes []categorize.Change
	var created bool
	err = database.WithTx(ctx, c.DB, func(tx *sql.Tx) error {
		if created, err = ensureCategory(ctx, tx, category); err != nil {
			return err
		}
		changes, err = applyKeyword(ctx, tx, category, keyword)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("apply keyword: %w", err)
	}
	if created {
		c.log().WithField(logging.FieldCategory, category).Debug("Registered category")
	}
	c.log().WithFields(logrus.Fields{
		logging.FieldOperation: "apply_keyword",
		logging.FieldCategory:  category,
		logging.FieldKeyword:   keyword,
		logging.FieldCount:     len(changes),
	}).Info("Reconciled transactions")
	return changes, nil
}

// ReapplyAll matches every stored transaction against the whole dictionary
// in substring mode. Unmatched rows keep their category. Calling it again
// without dictionary changes returns no changes.
func (c *Categorizer) ReapplyAll(ctx context.Context) ([]categorize.Change, error) {
	var changes []categorize.Change
	err := database.WithTx(ctx, c.DB, func(tx *sql.Tx) error {
		var err error
		changes, err = reapplyAll(ctx, tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reapply dictionary: %w", err)
	}
	c.log().WithFields(logrus.Fields{
		logging.FieldOperation: "reapply_all",
		logging.FieldCount:     len(changes),
	}).Info("Reconciled transactions")
	return changes, nil
}

// RecategorizeResult reports a user edit and the reconciliation it caused.
// Requested is the category asked for; Transaction.Category is where the
// row ended up after the reapply.
type RecategorizeResult struct {
	Transaction repository.Transaction
	Previous    string
	Requested   string
	Learned     *KeywordResult
	Reapplied   []categorize.Change
}

// Overridden reports whether the reapply moved the row away from the
// requested category.
func (r RecategorizeResult) Overridden() bool {
	return r.Transaction.Category != r.Requested
}

// Recategorize sets the category of one transaction. Unless the new
// category is Uncategorized, the transaction's details are learned as a
// keyword of it and the whole dictionary is reapplied.
//
// The reapply follows the usual tie-break, so when another category already
// owns a keyword of the same length that matches the row, the row goes back
// to that category. The call still succeeds; check Overridden.
func (c *Categorizer) Recategorize(ctx context.Context, id int64, category string) (RecategorizeResult, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return RecategorizeResult{}, &ledgererr.IntegrityError{Entity: "category", Reason: "name is empty"}
	}

	res := RecategorizeResult{Requested: category}
	err := database.WithTx(ctx, c.DB, func(tx *sql.Tx) error {
		txRepo := repository.NewTransactionRepo(tx)
		t, err := txRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("transaction %d: %w", id, ledgererr.ErrNotFound)
		}
		res.Previous = t.Category
		if t.Category == category {
			res.Transaction = *t
			return nil
		}

		if _, err := ensureCategory(ctx, tx, category); err != nil {
			return err
		}
		if err := txRepo.UpdateCategory(ctx, id, category); err != nil {
			return err
		}

		if category != categorize.Uncategorized && categorize.NormalizeKeyword(t.Details) != "" {
			learned, err := addKeyword(ctx, tx, category, t.Details)
			if err != nil {
				return err
			}
			res.Learned = &learned
			if res.Reapplied, err = reapplyAll(ctx, tx); err != nil {
				return err
			}
		}

		updated, err := txRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		res.Transaction = *updated
		return nil
	})
	if err != nil {
		return RecategorizeResult{}, fmt.Errorf("recategorize: %w", err)
	}

	log := c.log().WithFields(logrus.Fields{
		logging.FieldTransactionID: id,
		logging.FieldCategory:      res.Transaction.Category,
		logging.FieldCount:         len(res.Reapplied),
	})
	if res.Overridden() {
		log.WithField(logging.FieldRequested, category).Warn("Reapply kept transaction in another category")
	} else {
		log.Info("Recategorized transaction")
	}
	return res, nil
}

func checkKeyword(category, keyword string) (string, string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return "", "", &ledgererr.IntegrityError{Entity: "keyword", Reason: "category is empty"}
	}
	if category == categorize.Uncategorized {
		return "", "", &ledgererr.IntegrityError{
			Entity: "keyword",
			Reason: categorize.Uncategorized + " cannot own keywords",
			Err:    ledgererr.ErrReservedCategory,
		}
	}
	keyword = categorize.NormalizeKeyword(keyword)
	if keyword == "" {
		return "", "", &ledgererr.IntegrityError{Entity: "keyword", Reason: "keyword is empty"}
	}
	return category, keyword, nil
}

// ensureCategory registers name unless it is known and reports whether it
// was new.
func ensureCategory(ctx context.Context, q repository.Querier, name string) (bool, error) {
	repo := repository.NewCategoryRepo(q)
	ok, err := repo.Exists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("lookup category: %w", err)
	}
	if ok {
		return false, nil
	}
	if err := repo.Add(ctx, name); err != nil {
		return false, fmt.Errorf("add category: %w", err)
	}
	return true, nil
}

func addKeyword(ctx context.Context, q repository.Querier, category, keyword string) (KeywordResult, error) {
	category, keyword, err := checkKeyword(category, keyword)
	if err != nil {
		return KeywordResult{}, err
	}
	if _, err := ensureCategory(ctx, q, category); err != nil {
		return KeywordResult{}, err
	}
	added, err := repository.NewKeywordRepo(q).Add(ctx, category, keyword)
	if err != nil {
		return KeywordResult{}, fmt.Errorf("insert keyword: %w", err)
	}
	changes, err := applyKeyword(ctx, q, category, keyword)
	if err != nil {
		return KeywordResult{}, err
	}
	return KeywordResult{Category: category, Keyword: keyword, Added: added, Changes: changes}, nil
}

func applyKeyword(ctx context.Context, q repository.Querier, category, keyword string) ([]categorize.Change, error) {
	keywords, err := repository.NewKeywordRepo(q).ForCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	rows, err := loadRows(ctx, q)
	if err != nil {
		return nil, err
	}
	changes := categorize.PlanKeyword(rows, category, keyword, keywords)
	return changes, writeChanges(ctx, q, changes)
}

func reapplyAll(ctx context.Context, q repository.Querier) ([]categorize.Change, error) {
	dict, err := loadDictionary(ctx, q)
	if err != nil {
		return nil, err
	}
	rows, err := loadRows(ctx, q)
	if err != nil {
		return nil, err
	}
	changes := categorize.PlanReapply(rows, dict)
	return changes, writeChanges(ctx, q, changes)
}

func loadDictionary(ctx context.Context, q repository.Querier) (categorize.Dictionary, error) {
	entries, err := repository.NewKeywordRepo(q).All(ctx)
	if err != nil {
		return categorize.Dictionary{}, fmt.Errorf("load dictionary: %w", err)
	}
	return categorize.NewDictionary(entries), nil
}

func loadRows(ctx context.Context, q repository.Querier) ([]categorize.Row, error) {
	txs, err := repository.NewTransactionRepo(q).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	rows := make([]categorize.Row, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, categorize.Row{ID: t.ID, Details: t.Details, Category: t.Category})
	}
	return rows, nil
}

func writeChanges(ctx context.Context, q repository.Querier, changes []categorize.Change) error {
	updates := make([]repository.CategoryUpdate, 0, len(changes))
	for _, ch := range changes {
		updates = append(updates, repository.CategoryUpdate{ID: ch.ID, Category: ch.To})
	}
	if err := repository.NewTransactionRepo(q).UpdateCategories(ctx, updates); err != nil {
		return fmt.Errorf("write categories: %w", err)
	}
	return nil
}
