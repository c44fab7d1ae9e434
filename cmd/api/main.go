package main

import (
	"context"
	"log"

	"curiosity-sync/internal/bootstrap"
	"curiosity-sync/internal/shared/config"
	"curiosity-sync/internal/shared/server"
)

func main() {
	cfg := config.Load()
	app, err := bootstrap.Build(context.Background(), cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	addr := server.Addr(cfg.Port)
	log.Printf("Starting sync trigger server on %s (store=%s)", addr, app.Store.Kind())

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
