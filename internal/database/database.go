package database

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB is the shared database handle. Handlers and stores query through it
// directly; tests swap it for a mock driver.
var DB *sql.DB

// Connect opens the connection pool using the DATABASE_URL environment variable.
func Connect() error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	return ConnectURL(databaseURL)
}

// ConnectURL opens the connection pool against the given Postgres URL.
func ConnectURL(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	DB = db
	return nil
}

// Close closes the shared connection pool.
func Close() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}
