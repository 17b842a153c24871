package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/config"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/server"
)

func main() {
	cfg := config.LoadOrDefault()

	// Flags override environment
	port := flag.String("port", cfg.Server.Port, "HTTP port")
	storePath := flag.String("store", cfg.Store.Path, "SQLite store path")
	memory := flag.Bool("memory", cfg.Store.InMemory, "keep the store in memory, nothing persists")
	seedDir := flag.String("seed", cfg.Desktop.SeedDir, "host directory of app bundles to install at boot")
	dev := flag.Bool("dev", cfg.Logging.Development, "development logging")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Store.Path = *storePath
	cfg.Store.InMemory = *memory
	cfg.Desktop.SeedDir = *seedDir
	cfg.Logging.Development = *dev

	log.Printf("🖥  macos98 kernel %s", server.Version)

	srv, err := server.New(context.Background(), cfg, server.Options{})
	if err != nil {
		log.Fatalf("Failed to start kernel: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		log.Println("🛑 Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		srv.Close()
		log.Fatalf("Kernel error: %v", err)
	}
}
