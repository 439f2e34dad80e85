package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-sharelink/internal/api"
	"github.com/tendant/simple-sharelink/pkg/sharelink/config"
)

func main() {
	// Local development convenience; a missing .env file is fine.
	godotenv.Load()

	serverConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}

	ctx := context.Background()
	service, cleanup, err := serverConfig.BuildService(ctx)
	if err != nil {
		log.Fatalf("Failed to build service: %v", err)
	}
	defer cleanup()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverConfig.Port),
		Handler: api.NewRouter(service, serverConfig),
	}

	go func() {
		log.Printf("Simple Sharelink Server starting on port %s (env: %s)", serverConfig.Port, serverConfig.Environment)
		log.Printf("Public download base: %s/%s", serverConfig.PublicBaseURL, serverConfig.DownloadPrefix)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
