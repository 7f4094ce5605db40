// Package bootstrap brings up the infrastructure the bot needs before it
// starts polling: the logger and, when configured, the Postgres journal.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/restobot/core/config"
	coredatabase "github.com/m3rciful/restobot/core/database"
	"github.com/m3rciful/restobot/core/logger"
)

// Options carries the config plus replaceable steps; nil steps use the
// logger and database packages.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

func (o *Options) defaults() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
}

// Result holds what Run opened. DB is nil without a database config.
type Result struct {
	DB *sqlx.DB
}

func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	opts.defaults()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}
	if !opts.Database.Enabled() {
		logger.Warn(logger.Background(), logger.ComponentDB, "db.disabled",
			slog.String("reason", "not_configured"),
			slog.String("effect", "orders and feedback are not journaled"),
		)
		return &Result{}, nil
	}

	db, err := openJournal(opts)
	if err != nil {
		return nil, err
	}
	return &Result{DB: db}, nil
}

// openJournal connects and migrates; the pool is closed if migrations fail.
func openJournal(opts Options) (*sqlx.DB, error) {
	db, err := opts.Connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	if err := opts.Migrate(opts.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	return db, nil
}
