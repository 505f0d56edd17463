// Command readerpane is the document streaming server and CLI: it ingests
// PDFs into range blobs, streams byte ranges and page windows, and renders
// page images.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// SIGINT/SIGTERM cancel the root context so `readerpane serve` shuts
	// down gracefully instead of dropping in-flight streams.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
