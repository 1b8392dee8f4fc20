package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/roomops/pms-console/internal/infrastructure/database"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := database.NewPostgresConfigFromEnv()

	if err := database.RunMigrations(cfg); err != nil {
		log.Fatalf("Error applying migrations: %v", err)
	}
}
