package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Bykamri/dev-elaction-sub000/internal/config"

	_ "github.com/lib/pq"
)

// Connection represents a database connection
type Connection struct {
	db *sql.DB
}

// NewConnection creates a new database connection and runs the schema
// migration.
func NewConnection(config *config.Config) (*Connection, error) {
	db, err := sql.Open("postgres", config.Database.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	conn := &Connection{db: db}
	if err := conn.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return conn, nil
}

func (client *Connection) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS proposals (
		id BIGINT PRIMARY KEY,
		proposer VARCHAR(42) NOT NULL,
		metadata_uri TEXT NOT NULL,
		starting_bid NUMERIC(78,0) NOT NULL,
		duration_seconds BIGINT NOT NULL,
		status VARCHAR(16) NOT NULL,
		auction_address VARCHAR(42),
		reviewed_by VARCHAR(42),
		submit_tx_hash VARCHAR(66) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auctions (
		address VARCHAR(42) PRIMARY KEY,
		proposal_id BIGINT NOT NULL REFERENCES proposals(id),
		seller VARCHAR(42) NOT NULL,
		nft_contract VARCHAR(42) NOT NULL,
		nft_token_id NUMERIC(78,0) NOT NULL,
		payment_token VARCHAR(42) NOT NULL,
		metadata_uri TEXT NOT NULL,
		starting_bid NUMERIC(78,0) NOT NULL,
		highest_bid NUMERIC(78,0) NOT NULL DEFAULT 0,
		highest_bidder VARCHAR(42),
		end_time TIMESTAMP WITH TIME ZONE NOT NULL,
		status VARCHAR(16) NOT NULL,
		finalize_tx VARCHAR(66),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bids (
		id UUID PRIMARY KEY,
		auction_address VARCHAR(42) NOT NULL REFERENCES auctions(address),
		bidder VARCHAR(42) NOT NULL,
		amount NUMERIC(78,0) NOT NULL,
		tx_hash VARCHAR(66) NOT NULL UNIQUE,
		block_number BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reviewer_grants (
		address VARCHAR(42) PRIMARY KEY,
		granted_by VARCHAR(42) NOT NULL,
		tx_hash VARCHAR(66) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS index_cursor (
		name VARCHAR(32) PRIMARY KEY,
		last_block BIGINT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status);
	CREATE INDEX IF NOT EXISTS idx_auctions_status ON auctions(status);
	CREATE INDEX IF NOT EXISTS idx_bids_auction ON bids(auction_address);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := client.db.ExecContext(ctx, schema)
	return err
}

// GetDB returns the underlying sql.DB instance
func (client *Connection) GetDB() *sql.DB {
	return client.db
}

// Close closes the database connection
func (client *Connection) Close() error {
	return client.db.Close()
}

// BeginTransaction starts a new database transaction
func (client *Connection) BeginTransaction() (*sql.Tx, error) {
	tx, err := client.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// ExecuteTransaction executes a function within a transaction
func (client *Connection) ExecuteTransaction(fn func(*sql.Tx) error) error {
	tx, err := client.BeginTransaction()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx failed: %v, rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
