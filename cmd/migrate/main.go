package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"folio-analytics/pkg/database"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/analytics.db"
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [up|reset]")
		os.Exit(1)
	}

	command := os.Args[1]

	ctx := context.Background()
	db, err := database.Open(ctx, dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	switch command {
	case "up":
		// Open already applies the schema; this just confirms it worked.
		if err := db.Health(ctx); err != nil {
			log.Fatalf("Schema verification failed: %v", err)
		}
		fmt.Println("Schema is up to date")

	case "reset":
		if err := db.Reset(ctx); err != nil {
			log.Fatalf("Failed to reset data: %v", err)
		}
		fmt.Println("All analytics data deleted")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: go run main.go [up|reset]")
		os.Exit(1)
	}
}
