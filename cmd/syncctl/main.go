// Command syncctl lists, runs and enqueues sync jobs from a terminal.
package main

import (
	"context"
	"os"

	"curiosity-sync/internal/bootstrap"
	"curiosity-sync/internal/shared/config"
	"curiosity-sync/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	build := func(ctx context.Context) (*bootstrap.App, error) {
		return bootstrap.Build(ctx, cfg, bootstrap.Options{DBOptions: db.CLIOptions()})
	}
	if err := newRootCmd(build).Execute(); err != nil {
		os.Exit(1)
	}
}
