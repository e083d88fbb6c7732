// ABOUTME: Export and import commands for the single-file JSON backup format
// ABOUTME: Import force-reconciles the cloud mirror when integration is enabled
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/lodgekit/lodgekit/backup"
)

// ExportCommand writes the whole database to path (or stdout for "-").
func ExportCommand(app *App, path string) error {
	ctx := context.Background()

	out := os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create backup file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	if err := backup.Export(ctx, app.Store, out); err != nil {
		return err
	}
	if out != os.Stdout {
		app.Log.Info().Str("path", path).Msg("backup written")
	}
	return nil
}

// ImportCommand restores the database from a backup file.
func ImportCommand(app *App, path string) error {
	if path == "" {
		return fmt.Errorf("import requires a backup file path")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ctx := context.Background()
	if app.Bridge.Enabled() {
		app.Bridge.CheckHealth(ctx)
	}
	if err := backup.Import(ctx, app.Store, app.Bridge, f, app.Log); err != nil {
		return err
	}
	return app.Engine.State().Refresh(ctx)
}
