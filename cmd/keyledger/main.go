package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jask/keyledger/internal/config"
	"github.com/jask/keyledger/internal/database"
	"github.com/jask/keyledger/internal/logging"
	"github.com/jask/keyledger/internal/service"
)

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// app holds what every command needs once the database is open.
type app struct {
	cfg        config.Config
	configPath string
	log        *logrus.Logger
	db         *sql.DB

	ingest      *service.IngestService
	categorizer *service.Categorizer
	reporter    *service.Reporter
	duplicates  *service.DuplicateFinder
	maintenance *service.MaintenanceService
}

type rootFlags struct {
	configPath string
	dbPath     string
	logLevel   string
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:          "keyledger",
		Short:        "Categorize bank statement transactions with a learned keyword dictionary",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context(), flags, cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default $HOME/.config/keyledger/config.toml)")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "sqlite database path (overrides database.path)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newImportCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newCategoriesCmd(a),
		newKeywordsCmd(a),
		newRecategorizeCmd(a),
		newReapplyCmd(a),
		newSummaryCmd(a),
		newDuplicatesCmd(a),
		newDictionaryCmd(a),
		newHistoryCmd(a),
		newResetCmd(a),
		newConfigCmd(a),
		newDemoCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context, flags rootFlags, logOut io.Writer) error {
	// a missing .env is fine
	_ = godotenv.Load()

	path := flags.configPath
	if path == "" {
		path = os.Getenv("KEYLEDGER_CONFIG")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if flags.dbPath != "" {
		cfg.Database.Path = flags.dbPath
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	a.cfg = cfg
	a.configPath = path
	a.log = logging.NewWithWriter(logOut, cfg.Log.Level, cfg.Log.Format)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir db dir: %w", err)
	}
	if err := database.RunMigrations(cfg.Database.Path); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	a.db = db
	if err := database.SeedDefaults(ctx, db, cfg.Categories.Defaults); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}
	a.log.WithField(logging.FieldPath, cfg.Database.Path).Debug("Database ready")

	a.ingest = &service.IngestService{DB: db, Log: a.log}
	a.categorizer = &service.Categorizer{DB: db, Log: a.log}
	a.reporter = &service.Reporter{DB: db}
	a.duplicates = &service.DuplicateFinder{
		DB:               db,
		WindowDays:       cfg.Duplicates.WindowDays,
		MaxDistanceRatio: cfg.Duplicates.MaxDistanceRatio,
	}
	a.maintenance = &service.MaintenanceService{DB: db, Log: a.log, Defaults: cfg.Categories.Defaults}
	return nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

func (a *app) csvOptions() service.CSVOptions {
	return service.CSVOptions{
		DateLayout: a.cfg.Import.DateFormat,
		Delimiter:  []rune(a.cfg.Import.Delimiter)[0],
	}
}
