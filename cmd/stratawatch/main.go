// cmd/stratawatch/main.go
//
// Entry point for stratawatch. All real wiring lives in the bootstrap
// package; main just hands WAFFLE the lifecycle hooks and lets it run
// the config loading, DB setup, HTTP serving, and graceful shutdown.
package main

import (
	"context"
	"log"

	"github.com/dalemusser/stratawatch/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
