// ABOUTME: Status command: connectivity, pending outbox depth, and collection counts
// ABOUTME: Mirrors the information the UI's online/offline indicator consumes
package cli

import (
	"context"
	"fmt"

	"github.com/lodgekit/lodgekit/models"
)

// StatusCommand prints cloud reachability and local store counts.
func StatusCommand(app *App) error {
	ctx := context.Background()

	if app.Bridge.Enabled() {
		online := app.Bridge.CheckHealth(ctx)
		fmt.Printf("cloud:    enabled (%s)\n", onlineWord(online))
	} else {
		fmt.Println("cloud:    disabled (local-only)")
	}

	pending, err := app.Engine.PendingCount()
	if err != nil {
		return fmt.Errorf("failed to read outbox: %w", err)
	}
	fmt.Printf("pending:  %d queued mirror operations\n", pending)

	for _, collection := range models.BootstrapOrder() {
		n, err := app.Store.Count(ctx, collection)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", collection, err)
		}
		fmt.Printf("%-14s %d records\n", collection+":", n)
	}
	return nil
}

func onlineWord(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
