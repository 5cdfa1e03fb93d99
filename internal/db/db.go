package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Pool *pgxpool.Pool

// schema is applied on startup so the process fails fast instead of racing
// queries against a half-initialized store.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS dialogs (
		user_id INT PRIMARY KEY,
		interlocutors INT[] NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS dialog_messages (
		id BIGSERIAL PRIMARY KEY,
		dialog_id TEXT NOT NULL,
		sender_id INT NOT NULL,
		text TEXT NOT NULL,
		date TIMESTAMPTZ NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS dialog_messages_dialog_id_idx ON dialog_messages (dialog_id, id DESC)`,
	`CREATE TABLE IF NOT EXISTS chats (
		id INT PRIMARY KEY,
		users INT[] NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id BIGSERIAL PRIMARY KEY,
		chat_id INT NOT NULL,
		recipient_id INT NOT NULL,
		sender_id INT NOT NULL,
		text TEXT NOT NULL,
		date TIMESTAMPTZ NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS chat_messages_recipient_idx ON chat_messages (recipient_id, chat_id, id DESC)`,
	`CREATE TABLE IF NOT EXISTS approved_services (
		id SERIAL PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL
	)`,
}

// InitDB initializes the PostgreSQL connection pool and ensures the schema.
// It must complete before the server starts accepting connections.
func InitDB(connString string) error {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("unable to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	Pool, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return fmt.Errorf("unable to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Pool.Ping(ctx); err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("unable to ensure schema: %w", err)
		}
	}

	log.Println("Connected to PostgreSQL")
	return nil
}

// CloseDB closes the database connection pool
func CloseDB() {
	if Pool != nil {
		Pool.Close()
	}
}
