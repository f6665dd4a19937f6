// Command canvas-etl imports partner canvas files into the relational store.
//
// Usage:
//
//	canvas-etl run       import every recognized file of the intake directory
//	canvas-etl classify  show which canvas type each intake file matches
//	canvas-etl types     list the configured canvas types
//	canvas-etl history   list the most recent entries of the import ledger
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := Execute(ctx)
	stop()
	os.Exit(code)
}
