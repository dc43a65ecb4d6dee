package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/proposal"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
)

// ProposalRepository implements the proposal repository interface
type ProposalRepository struct {
	conn *Connection
}

// NewProposalRepository creates a new proposal repository
func NewProposalRepository(conn *Connection) *ProposalRepository {
	return &ProposalRepository{conn: conn}
}

// Create creates a new proposal record
func (r *ProposalRepository) Create(ctx context.Context, p *proposal.Proposal) error {
	query := `
		INSERT INTO proposals (id, proposer, metadata_uri, starting_bid, duration_seconds, status, auction_address, reviewed_by, submit_tx_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		p.ID,
		p.Proposer.Hex(),
		p.MetadataURI,
		p.StartingBid,
		int64(p.Duration.Seconds()),
		p.Status,
		addressOrNil(p.AuctionAddress),
		addressOrNil(p.ReviewedBy),
		p.SubmitTxHash.Hex(),
		p.CreatedAt,
		p.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create proposal: %w", err)
	}

	return nil
}

// GetByID retrieves a proposal by its on-chain id
func (r *ProposalRepository) GetByID(ctx context.Context, id uint64) (*proposal.Proposal, error) {
	query := `
		SELECT id, proposer, metadata_uri, starting_bid, duration_seconds, status, auction_address, reviewed_by, submit_tx_hash, created_at, updated_at
		FROM proposals
		WHERE id = $1
	`

	p, err := scanProposal(r.conn.GetDB().QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}

	return p, nil
}

// List retrieves proposals with an optional status filter
func (r *ProposalRepository) List(ctx context.Context, status *proposal.Status, page, pageSize int) ([]*proposal.Proposal, error) {
	baseQuery := `
		SELECT id, proposer, metadata_uri, starting_bid, duration_seconds, status, auction_address, reviewed_by, submit_tx_hash, created_at, updated_at
		FROM proposals
	`

	var whereClause string
	var args []interface{}
	argCount := 1

	if status != nil {
		whereClause = "WHERE status = $1"
		args = append(args, *status)
		argCount++
	}

	limitClause := fmt.Sprintf("LIMIT $%d", argCount)
	offsetClause := fmt.Sprintf("OFFSET $%d", argCount+1)
	args = append(args, pageSize, (page-1)*pageSize)

	query := baseQuery + whereClause + " ORDER BY created_at DESC " + limitClause + " " + offsetClause

	rows, err := r.conn.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var proposals []*proposal.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating proposals: %w", err)
	}

	return proposals, nil
}

// Update updates a proposal record
func (r *ProposalRepository) Update(ctx context.Context, p *proposal.Proposal) error {
	query := `
		UPDATE proposals
		SET metadata_uri = $2, starting_bid = $3, status = $4,
		    auction_address = $5, reviewed_by = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.conn.GetDB().ExecContext(ctx, query,
		p.ID,
		p.MetadataURI,
		p.StartingBid,
		p.Status,
		addressOrNil(p.AuctionAddress),
		addressOrNil(p.ReviewedBy),
		p.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update proposal: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrProposalNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProposal(row rowScanner) (*proposal.Proposal, error) {
	var p proposal.Proposal
	var proposer, txHash string
	var auctionAddr, reviewedBy sql.NullString
	var durationSeconds int64

	err := row.Scan(
		&p.ID,
		&proposer,
		&p.MetadataURI,
		&p.StartingBid,
		&durationSeconds,
		&p.Status,
		&auctionAddr,
		&reviewedBy,
		&txHash,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Proposer = common.HexToAddress(proposer)
	p.Duration = time.Duration(durationSeconds) * time.Second
	p.SubmitTxHash = common.HexToHash(txHash)
	if auctionAddr.Valid {
		addr := common.HexToAddress(auctionAddr.String)
		p.AuctionAddress = &addr
	}
	if reviewedBy.Valid {
		addr := common.HexToAddress(reviewedBy.String)
		p.ReviewedBy = &addr
	}

	return &p, nil
}

func addressOrNil(addr *common.Address) interface{} {
	if addr == nil {
		return nil
	}
	return addr.Hex()
}
