// Command hydrolink links points from a CSV file or point shapefile to the
// National Hydrography Dataset and builds the project documentation.
//
// Usage:
//
//	hydrolink link --input-file sites.csv --nhd-version nhdhr --method name_match
//	hydrolink validate --input-file sites.csv
//	hydrolink docs --package-dir internal --docs-dir docs
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
