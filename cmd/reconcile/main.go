// cmd/reconcile/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	app "wallet-ledger/internal"
	"wallet-ledger/internal/util"
)

// Runs one reconciliation sweep, or force-completes a single top-up with -ref,
// then exits. Intended for cron jobs and on-call use.
func main() {
	ref := flag.String("ref", "", "external reference of a PENDING top-up to force-complete")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline for the run")
	minAge := flag.Duration("min-age", 0, "only sweep top-ups at least this old")
	flag.Parse()

	os.Exit(run(*ref, *timeout, *minAge))
}

func run(ref string, timeout, minAge time.Duration) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	application := app.NewApplication(app.Headless())
	if err := application.Initialize(ctx); err != nil {
		util.GetLogger().Error("Failed to initialize application", zap.Error(err))
		util.SyncLogger()
		return 1
	}
	logger := application.Logger
	defer func() {
		if err := application.Shutdown(context.Background()); err != nil {
			logger.Error("Application shutdown failed", zap.Error(err))
		}
	}()

	if ref != "" {
		topUp, err := application.ReconcileService.ForceComplete(ctx, ref)
		if err != nil {
			logger.Error("Force-complete failed", zap.String("external_ref", ref), zap.Error(err))
			return 1
		}
		logger.Info("Top-up completed",
			zap.String("external_ref", topUp.ExternalRef),
			zap.String("account_id", topUp.AccountID),
			zap.Int64("amount", topUp.Amount),
		)
		return 0
	}

	report, err := application.ReconcileService.ReconcilePendingOlderThan(ctx, minAge)
	if err != nil {
		logger.Error("Reconciliation failed", zap.Error(err))
		return 1
	}
	logger.Info("Reconciliation finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("completed", report.Completed),
		zap.Int("failed", report.Failed),
		zap.Int("untouched", report.Untouched),
		zap.Int("errors", report.Errors),
	)
	if report.Errors > 0 {
		return 1
	}
	return 0
}
