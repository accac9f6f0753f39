package database

import (
	"context"
	"strings"

	"github.com/jask/keyledger/internal/categorize"
	"github.com/jask/keyledger/internal/database/repository"
)

// SeedDefaults ensures the Uncategorized sentinel and any configured default
// categories exist. It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, q repository.Querier, defaults []string) error {
	catRepo := repository.NewCategoryRepo(q)
	if err := catRepo.Add(ctx, categorize.Uncategorized); err != nil {
		return err
	}
	for _, name := range defaults {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if err := catRepo.Add(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
