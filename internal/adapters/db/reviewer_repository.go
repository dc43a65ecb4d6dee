package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
)

// ReviewerRepository implements the reviewer grant repository interface
type ReviewerRepository struct {
	conn *Connection
}

// NewReviewerRepository creates a new reviewer repository
func NewReviewerRepository(conn *Connection) *ReviewerRepository {
	return &ReviewerRepository{conn: conn}
}

// Save records a reviewer grant
func (r *ReviewerRepository) Save(ctx context.Context, grant *shared.ReviewerGrant) error {
	query := `
		INSERT INTO reviewer_grants (address, granted_by, tx_hash, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO UPDATE SET
			granted_by = EXCLUDED.granted_by,
			tx_hash = EXCLUDED.tx_hash
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		grant.Address.Hex(),
		grant.GrantedBy.Hex(),
		grant.TxHash.Hex(),
		grant.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save reviewer grant: %w", err)
	}

	return nil
}

// IsReviewer reports whether the address holds the reviewer role
func (r *ReviewerRepository) IsReviewer(ctx context.Context, addr common.Address) (bool, error) {
	query := `SELECT 1 FROM reviewer_grants WHERE address = $1`

	var one int
	err := r.conn.GetDB().QueryRowContext(ctx, query, addr.Hex()).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check reviewer grant: %w", err)
	}

	return true, nil
}

// List retrieves all reviewer grants
func (r *ReviewerRepository) List(ctx context.Context) ([]*shared.ReviewerGrant, error) {
	query := `
		SELECT address, granted_by, tx_hash, created_at
		FROM reviewer_grants
		ORDER BY created_at ASC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviewer grants: %w", err)
	}
	defer rows.Close()

	var grants []*shared.ReviewerGrant
	for rows.Next() {
		var grant shared.ReviewerGrant
		var address, grantedBy, txHash string
		if err := rows.Scan(&address, &grantedBy, &txHash, &grant.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reviewer grant: %w", err)
		}
		grant.Address = common.HexToAddress(address)
		grant.GrantedBy = common.HexToAddress(grantedBy)
		grant.TxHash = common.HexToHash(txHash)
		grants = append(grants, &grant)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviewer grants: %w", err)
	}

	return grants, nil
}
