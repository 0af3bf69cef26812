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

	"github.com/bozor-api/internal/application/account"
	"github.com/bozor-api/internal/config"
	"github.com/bozor-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/bozor-api/internal/infrastructure/jwt"
	transporthttp "github.com/bozor-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	adminRepo := dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Admins)

	if err := account.EnsureSuperAdmin(context.Background(), adminRepo, cfg); err != nil {
		log.Fatalf("superadmin seed: %v", err)
	}

	deps := &transporthttp.Deps{
		AdminRepo:   adminRepo,
		ClientRepo:  dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Clients),
		MarketRepo:  dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Markets),
		Ephemeral:   dynamo.NewEphemeralStore(dynamoClient, cfg.DynamoTables.Ephemeral),
		JWTProvider: jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
