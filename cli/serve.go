// ABOUTME: Serve command: bootstrap the engine and run the REST facade
// ABOUTME: Blocks until interrupted, then shuts the engine down cleanly
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lodgekit/lodgekit/web"
)

// ServeCommand bootstraps the replication engine (pull, merge, subscribe,
// seed) and serves the REST facade until SIGINT/SIGTERM.
func ServeCommand(app *App) error {
	ctx := context.Background()
	app.Engine.Bootstrap(ctx)

	app.Log.Info().
		Bool("cloud_enabled", app.Bridge.Enabled()).
		Bool("cloud_online", app.Bridge.Online()).
		Msg("engine ready")

	server := web.NewServer(app.Engine, app.Log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(app.Config.ListenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		app.Log.Info().Str("signal", sig.String()).Msg("shutting down")
		return nil
	}
}
