package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/dnldd/hammer/service"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	cfg := defaultConfig()
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hammerCfg, err := cfg.serviceConfig(cancel)
	if err != nil {
		log.Printf("building service config: %v", err)
		return
	}

	hammer, err := service.NewHammer(ctx, hammerCfg)
	if err != nil {
		log.Printf("creating hammer service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	hammer.Run(ctx)
}
