package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andresmejia3/eigenfaces/internal/config"
	"github.com/andresmejia3/eigenfaces/internal/solver"
	"github.com/andresmejia3/eigenfaces/internal/store"
	"github.com/andresmejia3/eigenfaces/internal/utils"
)

// Options holds shared configuration for compute, render, originals and inspect.
type Options struct {
	InputPath  string
	OutputDir  string
	StateDir   string
	RunID      string
	Form       string
	Solver     string
	Sort       bool
	Save       bool
	Count      int
	Size       int
	NumEngines int
}

var (
	// DB is the database connection shared by subcommands, opened on first use.
	DB *store.Store
	// Cfg is the resolved configuration.
	Cfg *config.Config
	// Log is the diagnostic logger; status lines for the user go straight to stderr.
	Log zerolog.Logger

	configPath string
	dbURL      string
	logLevel   string
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "eigenfaces",
	Short:   "Eigenface extraction from grayscale face dumps",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		Cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dbURL != "" {
			Cfg.Database.URL = dbURL
		}
		if logLevel != "" {
			Cfg.LogLevel = logLevel
		}
		Log, err = newLogger(Cfg.LogLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Background: the command context may already be cancelled by Ctrl+C.
			DB.Close(context.Background())
			DB = nil
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: postgres://localhost:5432/eigenfaces)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Diagnostic log level: debug, info, warn, error")
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// openStore connects on first use so that commands that never touch the
// database work without one.
func openStore(ctx context.Context) (*store.Store, error) {
	if DB != nil {
		return DB, nil
	}
	s, err := store.New(ctx, Cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	DB = s
	return DB, nil
}

// fail prints the error box, attaching solver stderr when there is any, and
// returns err for cobra.
func fail(what string, err error) error {
	var se *solver.SolverError
	if errors.As(err, &se) {
		utils.ShowErrorLogs(what, err, se.Stderr)
		return err
	}
	utils.ShowError(what, err, nil)
	return err
}
