package main

import (
	"context"
	"log"
	"os"

	"github.com/studentmarketplace/identity-service/internal/app/bootstrap"
)

func main() {
	configPath := "configs/default.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}

	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, configPath)
	if err != nil {
		log.Fatalf("bootstrap runtime: %v", err)
	}
	if err := runtime.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
}
