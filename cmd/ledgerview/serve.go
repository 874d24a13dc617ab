package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ledgerview/internal/cache"
	apphttp "ledgerview/internal/http"
	"ledgerview/internal/log"
	"ledgerview/internal/notify"
	"ledgerview/internal/session"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = time.Minute
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the expense API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger.WithComponent(log.ComponentApp)

	res, err := a.openBackend(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	notices := notify.NewBuffer(a.cfg.NoticeBuffer)
	notifier := res.Notifier(a.logger, notices)
	registry := session.NewRegistry(a.cfg.MaxSessions, a.cfg.SessionTTL,
		res.SessionFactory(a.cfg.LocalStoreKey, notifier, a.logger), a.logger)

	sweeper := cache.NewManager(a.logger)
	sweeper.Register(registry.Cleaner())
	sweeper.StartCleanup(sweepInterval)

	srv := apphttp.NewServer(":"+a.cfg.Port, apphttp.Deps{
		Registry:          registry,
		Notices:           notices,
		Notifier:          notifier,
		Logger:            a.logger,
		ConnectTimeout:    a.cfg.ConnectTimeout,
		ReloadDelay:       a.cfg.ReloadDelay,
		DeleteReloadDelay: a.cfg.DeleteReloadDelay,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledgerview server",
			"port", a.cfg.Port,
			"ledger", a.cfg.LedgerBackend,
			"local_store", a.cfg.LocalStore,
			"version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		sweeper.Stop()
		registry.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
