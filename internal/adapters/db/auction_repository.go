package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/auction"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
)

// AuctionRepository implements the auction repository interface
type AuctionRepository struct {
	conn *Connection
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(conn *Connection) *AuctionRepository {
	return &AuctionRepository{conn: conn}
}

// Create creates a new auction record
func (r *AuctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (address, proposal_id, seller, nft_contract, nft_token_id, payment_token, metadata_uri, starting_bid, highest_bid, highest_bidder, end_time, status, finalize_tx, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		a.Address.Hex(),
		a.ProposalID,
		a.Seller.Hex(),
		a.NFTContract.Hex(),
		a.NFTTokenID,
		a.PaymentToken.Hex(),
		a.MetadataURI,
		a.StartingBid,
		a.HighestBid,
		addressOrNil(a.HighestBidder),
		a.EndTime,
		a.Status,
		hashOrNil(a.FinalizeTx),
		a.CreatedAt,
		a.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}

	return nil
}

// GetByAddress retrieves an auction by its contract address
func (r *AuctionRepository) GetByAddress(ctx context.Context, addr common.Address) (*auction.Auction, error) {
	query := `
		SELECT address, proposal_id, seller, nft_contract, nft_token_id, payment_token, metadata_uri, starting_bid, highest_bid, highest_bidder, end_time, status, finalize_tx, created_at, updated_at
		FROM auctions
		WHERE address = $1
	`

	a, err := scanAuction(r.conn.GetDB().QueryRowContext(ctx, query, addr.Hex()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	return a, nil
}

// List retrieves auctions with an optional status filter
func (r *AuctionRepository) List(ctx context.Context, status *auction.Status, page, pageSize int) ([]*auction.Auction, error) {
	baseQuery := `
		SELECT address, proposal_id, seller, nft_contract, nft_token_id, payment_token, metadata_uri, starting_bid, highest_bid, highest_bidder, end_time, status, finalize_tx, created_at, updated_at
		FROM auctions
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
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}

	return auctions, nil
}

// Update updates an auction record
func (r *AuctionRepository) Update(ctx context.Context, a *auction.Auction) error {
	query := `
		UPDATE auctions
		SET highest_bid = $2, highest_bidder = $3, end_time = $4,
		    status = $5, finalize_tx = $6, updated_at = $7
		WHERE address = $1
	`

	result, err := r.conn.GetDB().ExecContext(ctx, query,
		a.Address.Hex(),
		a.HighestBid,
		addressOrNil(a.HighestBidder),
		a.EndTime,
		a.Status,
		hashOrNil(a.FinalizeTx),
		a.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrAuctionNotFound
	}

	return nil
}

func scanAuction(row rowScanner) (*auction.Auction, error) {
	var a auction.Auction
	var address, seller, nftContract, paymentToken string
	var highestBidder, finalizeTx sql.NullString

	err := row.Scan(
		&address,
		&a.ProposalID,
		&seller,
		&nftContract,
		&a.NFTTokenID,
		&paymentToken,
		&a.MetadataURI,
		&a.StartingBid,
		&a.HighestBid,
		&highestBidder,
		&a.EndTime,
		&a.Status,
		&finalizeTx,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Address = common.HexToAddress(address)
	a.Seller = common.HexToAddress(seller)
	a.NFTContract = common.HexToAddress(nftContract)
	a.PaymentToken = common.HexToAddress(paymentToken)
	if highestBidder.Valid {
		addr := common.HexToAddress(highestBidder.String)
		a.HighestBidder = &addr
	}
	if finalizeTx.Valid {
		hash := common.HexToHash(finalizeTx.String)
		a.FinalizeTx = &hash
	}

	return &a, nil
}

func hashOrNil(hash *common.Hash) interface{} {
	if hash == nil {
		return nil
	}
	return hash.Hex()
}
