package db

import (
	"context"
	"database/sql"
	"fmt"
)

const indexerCursorName = "chain_indexer"

// CursorRepository persists the indexer's block cursor
type CursorRepository struct {
	conn *Connection
}

// NewCursorRepository creates a new cursor repository
func NewCursorRepository(conn *Connection) *CursorRepository {
	return &CursorRepository{conn: conn}
}

// LastProcessedBlock returns the highest fully indexed block, or 0 if the
// indexer has never run.
func (r *CursorRepository) LastProcessedBlock(ctx context.Context) (uint64, error) {
	query := `SELECT last_block FROM index_cursor WHERE name = $1`

	var block uint64
	err := r.conn.GetDB().QueryRowContext(ctx, query, indexerCursorName).Scan(&block)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get index cursor: %w", err)
	}

	return block, nil
}

// SetLastProcessedBlock advances the cursor
func (r *CursorRepository) SetLastProcessedBlock(ctx context.Context, block uint64) error {
	query := `
		INSERT INTO index_cursor (name, last_block)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET last_block = EXCLUDED.last_block
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query, indexerCursorName, block)
	if err != nil {
		return fmt.Errorf("failed to set index cursor: %w", err)
	}

	return nil
}
