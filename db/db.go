package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/kteam-analyzer/backend/config"
)

func InitDB(cfg *config.Config) (*sql.DB, error) {
	var connStr string
	if cfg.DatabaseURL != "" {
		connStr = cfg.DatabaseURL
	} else {
		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

func RunMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS patch_sets (
		id VARCHAR(255) PRIMARY KEY,
		subject TEXT NOT NULL,
		epoch_message_id VARCHAR(255) NOT NULL UNIQUE,
		owner VARCHAR(255) NOT NULL,
		thread_url TEXT NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL,
		patch_count INT DEFAULT 0,
		ack_count INT DEFAULT 0,
		nak_count INT DEFAULT 0,
		applied_count INT DEFAULT 0,
		status VARCHAR(50) DEFAULT 'needs-acks',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id VARCHAR(255) PRIMARY KEY,
		patch_set_id VARCHAR(255) NOT NULL REFERENCES patch_sets(id) ON DELETE CASCADE,
		message_id VARCHAR(255) NOT NULL UNIQUE,
		in_reply_to VARCHAR(255),
		subject TEXT NOT NULL,
		sender VARCHAR(255) NOT NULL,
		body TEXT,
		category VARCHAR(32) NOT NULL DEFAULT 'not-patch',
		sent_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_patch_set_id ON messages(patch_set_id);
	CREATE INDEX IF NOT EXISTS idx_messages_sent_at ON messages(sent_at);
	CREATE INDEX IF NOT EXISTS idx_patch_sets_status ON patch_sets(status);
	CREATE INDEX IF NOT EXISTS idx_patch_sets_submitted_at ON patch_sets(submitted_at);
	`

	_, err := db.Exec(schema)
	return err
}
