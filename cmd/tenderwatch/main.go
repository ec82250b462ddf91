// Command tenderwatch is a terminal client for the procurement monitoring
// API: pick a notice, read its AI summary, acquire and analyze its
// documents and ask questions about it.
//
// Usage:
//
//	tenderwatch [notice-id]   Open the TUI (optionally on a notice)
//	tenderwatch demo          TUI against the built-in stand-in API
//	tenderwatch serve         Run only the stand-in API
//	tenderwatch recent        List recently opened notices
//	tenderwatch events        JSONL event log viewer
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
