package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Applies the schema in migrations/001_schema.sql to the database named by
// DATABASE_URL. Run from the repository root.
func main() {
	_ = godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		fmt.Println("DATABASE_URL is not set")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Printf("Failed to connect to DB: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqlFile, err := os.ReadFile("migrations/001_schema.sql")
	if err != nil {
		fmt.Printf("Failed to read sql file: %v\n", err)
		os.Exit(1)
	}

	if _, err := pool.Exec(ctx, string(sqlFile)); err != nil {
		fmt.Printf("Schema apply failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Schema applied.")
}
