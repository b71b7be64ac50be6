package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/smtguard/smtg/internal/api"
	"github.com/smtguard/smtg/internal/flow"
	"github.com/smtguard/smtg/internal/monitor"
	"github.com/smtguard/smtg/internal/notify"
	"github.com/smtguard/smtg/internal/store"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for SMTG state data
	DefaultStateDir = "/var/lib/smtg"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "smtg.db"
)

// Config holds environment configuration. Variables are read with the SMTG
// prefix, so DBDSN binds to SMTG_DB_DSN and so on.
type Config struct {
	DBDSN       string `envconfig:"DB_DSN"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	StateDir    string `envconfig:"STATE_DIR"`
	APIAddr     string `envconfig:"API_ADDR" default:":8080"`
	MonitorCron string `envconfig:"MONITOR_CRON"`
	NudgeSMSTo  string `envconfig:"NUDGE_TO_NUMBER"`
	SeedDemo    bool   `envconfig:"SEED_DEMO"`
	Debug       bool   `envconfig:"DEBUG"`
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDSN       *string
	apiAddr     *string
	monitorCron *string
	seedDemo    *bool
	debug       *bool
}

func main() {
	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	initializeLogger(*flags.debug)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if *flags.seedDemo {
		if err := store.SeedDemoData(context.Background(), st, time.Now()); err != nil {
			slog.Error("Failed to seed demo data", "error", err)
			os.Exit(1)
		}
	}

	timer := flow.NewSimpleTimer()
	defer timer.Stop()

	nudgeFlow := flow.NewNudgeFlow(st, timer, buildNotifier(config))

	mon := monitor.New(st, nudgeFlow, *flags.monitorCron)
	if err := mon.Start(); err != nil {
		slog.Error("Failed to start usage monitor", "error", err)
		os.Exit(1)
	}
	defer mon.Stop()

	server := api.NewServer(st, nudgeFlow, api.WithAddr(*flags.apiAddr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping SMTG with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr, "monitor_cron", *flags.monitorCron)
	if err := server.Run(ctx); err != nil {
		slog.Error("SMTG failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("SMTG exited successfully")
}

// initializeLogger sets up structured logging
func initializeLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	var config Config
	if err := envconfig.Process("smtg", &config); err != nil {
		slog.Warn("failed to process environment configuration", "error", err)
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No SMTG_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// Fall back to DATABASE_URL, then to SQLite in the state directory
	if config.DBDSN == "" {
		config.DBDSN = config.DatabaseURL
	}
	if config.DBDSN == "" {
		config.DBDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DBDSN)
	}

	if config.MonitorCron == "" {
		config.MonitorCron = monitor.DefaultCronSpec
	}

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for SMTG data (overrides $SMTG_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DBDSN, "database DSN (overrides $SMTG_DB_DSN or $SMTG_DATABASE_URL)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $SMTG_API_ADDR)"),
		monitorCron: flag.String("monitor-cron", config.MonitorCron, "cron spec for the usage monitor (overrides $SMTG_MONITOR_CRON)"),
		seedDemo:    flag.Bool("seed-demo", config.SeedDemo, "seed demo sessions into an empty store (overrides $SMTG_SEED_DEMO)"),
		debug:       flag.Bool("debug", config.Debug, "enable debug logging (overrides $SMTG_DEBUG)"),
	}

	flag.Parse()

	// Re-anchor a defaulted SQLite path when the state directory moved
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) != "sqlite" {
		return nil
	}
	stateDir := filepath.Dir(*flags.dbDSN)
	slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
	return os.MkdirAll(stateDir, 0755)
}

// openStore selects a storage backend from the DSN
func openStore(flags Flags) (store.Store, error) {
	switch store.DetectDSNType(*flags.dbDSN) {
	case "postgres":
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_set", true)
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	case "memory":
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	default:
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
		return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
	}
}

// buildNotifier wires the SMS channel when a destination number is
// configured, falling back to a no-op notifier otherwise.
func buildNotifier(config Config) flow.Notifier {
	if config.NudgeSMSTo == "" {
		return notify.NoopNotifier{}
	}
	notifier, err := notify.NewTwilioNotifier(notify.WithToNumber(config.NudgeSMSTo))
	if err != nil {
		slog.Warn("SMS notifier unavailable, nudges will not be delivered out of band", "error", err)
		return notify.NoopNotifier{}
	}
	slog.Info("SMS nudge delivery enabled")
	return notifier
}
