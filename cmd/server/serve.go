package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docudir-api/internal/api"
)

// tokenPruneInterval is how often expired revocations are deleted while
// serving.
const tokenPruneInterval = time.Hour

func (a *app) serve(ctx context.Context) error {
	gin.SetMode(a.cfg.GetGINMode())

	router := api.NewRouter(api.Deps{
		Logger:          a.logger,
		Auth:            a.auth,
		Sites:           a.sites,
		Folders:         a.folders,
		Files:           a.files,
		DB:              a.db,
		EnableCORS:      a.cfg.Server.EnableCORS,
		MaxUploadMemory: a.cfg.Upload.MaxMemory,
	})

	srv := &http.Server{
		Addr:           a.cfg.Server.Address,
		Handler:        router,
		ReadTimeout:    a.cfg.Server.ReadTimeout,
		WriteTimeout:   a.cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if a.cfg.Reconcile.Interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.every(ctx, a.cfg.Reconcile.Interval, a.reconcileOnce)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.every(ctx, tokenPruneInterval, a.pruneOnce)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			stop()
			wg.Wait()
			return err
		}
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("Server forced to shutdown")
	}
	wg.Wait()

	a.logger.Info("Server exited")
	return nil
}

// every runs fn each interval until ctx is done.
func (a *app) every(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (a *app) reconcileOnce(ctx context.Context) {
	report, err := a.files.Reconcile(ctx, a.cfg.Reconcile.Fix)
	if err != nil {
		a.logger.WithError(err).Error("Reconcile failed")
		return
	}
	entry := a.logger.WithField("sites", report.Sites).WithField("findings", len(report.Findings))
	if len(report.Findings) > 0 {
		entry.Warn("Reconcile found inconsistencies")
		return
	}
	entry.Debug("Reconcile clean")
}

func (a *app) pruneOnce(ctx context.Context) {
	n, err := a.auth.PruneRevoked(ctx)
	if err != nil {
		a.logger.WithError(err).Error("Pruning revoked tokens failed")
		return
	}
	a.logger.WithField("pruned", n).Debug("Pruned revoked tokens")
}

func init() {
	// stdout is reserved for command output.
	gin.DefaultWriter = os.Stderr
}
