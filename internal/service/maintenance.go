package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jask/keyledger/internal/database"
	"github.com/jask/keyledger/internal/logging"
)

// MaintenanceService houses destructive actions surfaced through the CLI.
type MaintenanceService struct {
	DB       *sql.DB
	Log      logrus.FieldLogger
	Defaults []string
}

// Reset wipes all user data and reseeds the default categories. The schema
// and the id sequence are kept, so ids are still never reused.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		tables := []string{
			"keywords",
			"transactions",
			"import_batches",
			"categories",
		}
		for _, t := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return database.SeedDefaults(ctx, tx, s.Defaults)
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	logging.OrDiscard(s.Log).WithField(logging.FieldOperation, "reset").Warn("All ledger data removed")
	return nil
}
