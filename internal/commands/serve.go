package commands

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/magnolia-hms/finance/internal/audit"
	"github.com/magnolia-hms/finance/internal/buildinfo"
	"github.com/magnolia-hms/finance/internal/chart"
	"github.com/magnolia-hms/finance/internal/config"
	"github.com/magnolia-hms/finance/internal/httpapi"
	"github.com/magnolia-hms/finance/internal/service/budget"
	"github.com/magnolia-hms/finance/internal/service/journal"
	"github.com/magnolia-hms/finance/internal/service/report"
	"github.com/magnolia-hms/finance/internal/service/translate"
	"github.com/magnolia-hms/finance/internal/storage/memory"
	"github.com/magnolia-hms/finance/internal/storage/postgres"
	"github.com/magnolia-hms/finance/internal/storage/sqlite"
)

// store is the full persistence surface the service runs on. All three
// backends satisfy it.
type store interface {
	journal.Repo
	journal.Writer
	translate.Store
	report.LedgerRepo
	report.DocumentRepo
	budget.Store
	httpapi.AccountStore
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := cfg.Logger()
		slog.SetDefault(logger)
		return serve(cmd.Context(), cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, readier, closeFn, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	// Resolve the chart once at boot; a chart missing a posting role is a
	// deployment fault and the service refuses to start.
	accounts, err := st.ListAccounts(ctx)
	if err != nil {
		return err
	}
	registry, err := chart.Resolve(accounts, chart.DefaultMapping())
	if err != nil {
		return err
	}

	auditor := audit.NewLogger(logger)
	js := journal.New(st, st, auditor)
	srv := httpapi.New(httpapi.Deps{
		Journal:  js,
		Docs:     translate.New(registry, js, st, cfg.Currency, auditor),
		Reports:  report.New(st, st),
		Budgets:  budget.New(st, auditor),
		Accounts: st,
		Readier:  readier,
		Logger:   logger,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("finance service listening", "addr", httpSrv.Addr, "version", buildinfo.String())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// openStore selects the backend from config: postgres when DATABASE_URL is
// set, sqlite when SQLITE_PATH is set, otherwise in-memory. The memory store
// always gets the default chart; durable stores are seeded only with
// DEV_SEED so production charts survive restarts untouched.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store, httpapi.ReadyChecker, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.DevSeed {
			if err := pg.SeedAccounts(ctx, chart.DefaultChart()); err != nil {
				pg.Close()
				return nil, nil, nil, err
			}
		}
		logger.Info("storage backend: postgres")
		return pg, pg, pg.Close, nil
	case cfg.SQLitePath != "":
		sq, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.DevSeed {
			if err := sq.SeedAccounts(ctx, chart.DefaultChart()); err != nil {
				sq.Close()
				return nil, nil, nil, err
			}
		}
		logger.Info("storage backend: sqlite", "path", cfg.SQLitePath)
		return sq, sq, func() { _ = sq.Close() }, nil
	default:
		mem := memory.New()
		mem.SeedAccounts(chart.DefaultChart())
		logger.Info("storage backend: memory")
		return mem, nil, nil, nil
	}
}
