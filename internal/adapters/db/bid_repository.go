package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/bid"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
)

// BidRepository implements the bid repository interface
type BidRepository struct {
	conn *Connection
}

// NewBidRepository creates a new bid repository
func NewBidRepository(conn *Connection) *BidRepository {
	return &BidRepository{conn: conn}
}

func (r *BidRepository) Create(ctx context.Context, b *bid.Bid) error {
	query := `
		INSERT INTO bids (id, auction_address, bidder, amount, tx_hash, block_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		b.ID,
		b.AuctionAddress.Hex(),
		b.Bidder.Hex(),
		b.Amount,
		b.TxHash.Hex(),
		b.BlockNumber,
		b.Status,
		b.CreatedAt,
		b.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create bid: %w", err)
	}

	return nil
}

// GetByAuction retrieves all bids for an auction, highest first
func (r *BidRepository) GetByAuction(ctx context.Context, addr common.Address) ([]*bid.Bid, error) {
	query := `
		SELECT id, auction_address, bidder, amount, tx_hash, block_number, status, created_at, updated_at
		FROM bids
		WHERE auction_address = $1
		ORDER BY amount DESC, created_at ASC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, addr.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return bids, nil
}

// GetByTxHash retrieves a bid by its transaction hash
func (r *BidRepository) GetByTxHash(ctx context.Context, txHash common.Hash) (*bid.Bid, error) {
	query := `
		SELECT id, auction_address, bidder, amount, tx_hash, block_number, status, created_at, updated_at
		FROM bids
		WHERE tx_hash = $1
	`

	b, err := scanBid(r.conn.GetDB().QueryRowContext(ctx, query, txHash.Hex()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrNoBidsFound
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}

	return b, nil
}

// GetHighest retrieves the highest confirmed bid for an auction
func (r *BidRepository) GetHighest(ctx context.Context, addr common.Address) (*bid.Bid, error) {
	query := `
		SELECT id, auction_address, bidder, amount, tx_hash, block_number, status, created_at, updated_at
		FROM bids
		WHERE auction_address = $1 AND status = 'confirmed'
		ORDER BY amount DESC, created_at ASC
		LIMIT 1
	`

	b, err := scanBid(r.conn.GetDB().QueryRowContext(ctx, query, addr.Hex()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrNoBidsFound
		}
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}

	return b, nil
}

// Update updates a bid record
func (r *BidRepository) Update(ctx context.Context, b *bid.Bid) error {
	query := `
		UPDATE bids
		SET amount = $2, block_number = $3, status = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.conn.GetDB().ExecContext(ctx, query,
		b.ID,
		b.Amount,
		b.BlockNumber,
		b.Status,
		b.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update bid: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrNoBidsFound
	}

	return nil
}

/*
RecordBidWithOCC records a confirmed bid using optimistic concurrency control.
 1. Reading the auction's current highest bid inside the transaction
 2. Validating the expected highest bid matches what the caller saw
 3. Inserting the bid and advancing the auction's highest bid
 4. Failing if another transaction advanced the auction concurrently
*/
func (r *BidRepository) RecordBidWithOCC(ctx context.Context, newBid *bid.Bid, expectedHighest decimal.Decimal) error {
	return r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		auctionQuery := `
			SELECT highest_bid, status, updated_at
			FROM auctions
			WHERE address = $1
		`

		var dbHighest decimal.Decimal
		var status string
		var updatedAt time.Time
		err := tx.QueryRowContext(ctx, auctionQuery, newBid.AuctionAddress.Hex()).Scan(&dbHighest, &status, &updatedAt)
		if err != nil {
			if err == sql.ErrNoRows {
				return shared.ErrAuctionNotFound
			}
			return fmt.Errorf("failed to get auction for OCC: %w", err)
		}

		if status != "live" {
			return shared.ErrAuctionNotAcceptingBids
		}

		if !dbHighest.Equal(expectedHighest) {
			return shared.ErrBidBelowHighest
		}

		if newBid.Amount.LessThanOrEqual(dbHighest) && !dbHighest.IsZero() {
			return shared.ErrBidBelowHighest
		}

		bidQuery := `
			INSERT INTO bids (id, auction_address, bidder, amount, tx_hash, block_number, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (tx_hash) DO UPDATE SET
				block_number = EXCLUDED.block_number,
				status = EXCLUDED.status,
				updated_at = EXCLUDED.updated_at
		`

		_, err = tx.ExecContext(ctx, bidQuery,
			newBid.ID,
			newBid.AuctionAddress.Hex(),
			newBid.Bidder.Hex(),
			newBid.Amount,
			newBid.TxHash.Hex(),
			newBid.BlockNumber,
			newBid.Status,
			newBid.CreatedAt,
			newBid.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bid: %w", err)
		}

		// Use the expected highest bid in the WHERE clause so a concurrent
		// writer cannot silently move the auction under us.
		updateQuery := `
			UPDATE auctions
			SET highest_bid = $2, highest_bidder = $3, updated_at = $4
			WHERE address = $1 AND highest_bid = $5
		`

		result, err := tx.ExecContext(ctx, updateQuery,
			newBid.AuctionAddress.Hex(),
			newBid.Amount,
			newBid.Bidder.Hex(),
			newBid.UpdatedAt,
			expectedHighest,
		)
		if err != nil {
			return fmt.Errorf("failed to update auction highest bid: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return shared.ErrBidBelowHighest
		}

		return nil
	})
}

func scanBid(row rowScanner) (*bid.Bid, error) {
	var b bid.Bid
	var auctionAddr, bidder, txHash string

	err := row.Scan(
		&b.ID,
		&auctionAddr,
		&bidder,
		&b.Amount,
		&txHash,
		&b.BlockNumber,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.AuctionAddress = common.HexToAddress(auctionAddr)
	b.Bidder = common.HexToAddress(bidder)
	b.TxHash = common.HexToHash(txHash)

	return &b, nil
}
