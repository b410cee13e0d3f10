package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"slightbackup/api"
	"slightbackup/logging"
	"slightbackup/task"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the export API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
}

func serve(parent context.Context, opts *rootOptions) error {
	cfg := opts.cfg
	log := logging.Default()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	tracker := api.NewTracker(a.store, a.notifier)
	coord := task.NewCoordinator(a.registry, a.store, tracker, a.coordinatorOptions()...)

	router := api.SetupRouter(coord, tracker, a.store, cfg)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, log)

	go func() {
		if err := coord.Run(ctx); err != nil {
			log.WithError(err).Error("Dispatch loop stopped.")
		}
	}()
	go a.store.CleanupLoop(ctx)
	go tracker.CleanupLoop(ctx, cfg.RecordLifetime)
	go func() {
		if err := a.store.Watch(ctx); err != nil {
			log.WithError(err).Warn("Backup directory watch disabled.")
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("Server starting.")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return err
	}

	// Restore default behavior on the interrupt signal and notify user of shutdown.
	stop()
	log.Info("Shutting down gracefully, press Ctrl+C again to force")

	for _, t := range coord.List() {
		coord.CancelTask(t)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown.")
	}

	coord.Wait()
	coord.Close()
	log.Info("Server exiting")
	return nil
}
