package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jjenkins/parliament/internal/config"
	"github.com/jjenkins/parliament/internal/logging"
	"github.com/jjenkins/parliament/internal/service"
	"github.com/jjenkins/parliament/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	v       = viper.New()
	cfg     *config.Config
	logger  = zap.NewNop()
)

var errMissingAPIKey = errors.New("summary api key is required (set GEMINI_API_KEY)")

var rootCmd = &cobra.Command{
	Use:   "parliament",
	Short: "Ingest, reconcile and browse parliamentary sitting records",
	Long: `parliament fetches the official record of each sitting day, stores
sittings, members, attendance, debate sections and bills, attributes sections
to ministries and generates summaries.

Configuration is read from parliament.yaml (or --config), then PARLIAMENT_*
environment variables, then flags. DATABASE_URL and GEMINI_API_KEY are also
honoured.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		l, err := logging.New(loaded.Log.Level, loaded.Log.Format)
		if err != nil {
			return err
		}
		cfg, logger = loaded, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./parliament.yaml)")
	flags.String("database-url", "", "Store DSN (overrides DATABASE_URL)")
	flags.String("driver", "postgres", "Store driver (postgres or sqlite3)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console or json)")

	_ = v.BindPFlag("database.url", flags.Lookup("database-url"))
	_ = v.BindPFlag("database.driver", flags.Lookup("driver"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
}

// interruptContext is cancelled on SIGINT or SIGTERM
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			logger.Warn("Received interrupt signal, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// openStore connects to the configured store
func openStore() (*sql.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	logger.Info("Connecting to database", zap.String("driver", cfg.Database.Driver))
	db, err := store.NewDB(cfg.Database.Driver, cfg.Database.URL, store.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// parseDateArgs reads START [END]. A missing END means the single day START.
func parseDateArgs(args []string) (time.Time, time.Time, error) {
	start, err := service.ParseDate(args[0])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	end := start
	if len(args) > 1 {
		if end, err = service.ParseDate(args[1]); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s",
			args[1], args[0])
	}
	return start, end, nil
}

// newSummarizer builds the summarizer on the configured generator models
func newSummarizer(db *sql.DB, resolver *service.Resolver) (service.SummaryRunner, error) {
	if cfg.Summary.APIKey == "" {
		return nil, errMissingAPIKey
	}

	general := service.NewGeminiClient(cfg.Summary, cfg.Summary.Model, logger)
	member := service.NewGeminiClient(cfg.Summary, cfg.Summary.MemberModel, logger)

	return service.NewSummarizer(db, service.NewLineage(db, resolver), general, member, service.SummarizerConfig{
		Concurrency: cfg.Summary.Concurrency,
		Cooldown:    cfg.Summary.Cooldown,
	}, logger), nil
}
