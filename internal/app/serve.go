package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/arttuliini/GPIO-Vasalli/internal/api"
	"github.com/arttuliini/GPIO-Vasalli/internal/storage"
	"github.com/arttuliini/GPIO-Vasalli/internal/version"
)

// Serve runs the read-only HTTP API until interrupted.
func (a *App) Serve(ctx context.Context, address string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loc, err := a.location()
	if err != nil {
		return err
	}
	if address == "" {
		address = a.Config.API.Address
	}

	srv := api.New(api.Config{
		Address:        address,
		AllowedOrigins: a.Config.API.AllowedOrigins,
		Channels:       a.settings(),
		Status:         storage.NewStatusFile(a.Config.Paths.StatusFile),
		Simulator:      a,
		Location:       loc,
		Log:            a.Logger,
		Version:        version.String(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
