package outbound

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/auction"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/bid"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/proposal"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
)

// ProposalRepository defines the interface for proposal data operations
type ProposalRepository interface {
	// Create creates a new proposal record
	Create(ctx context.Context, p *proposal.Proposal) error

	// GetByID retrieves a proposal by its on-chain id
	GetByID(ctx context.Context, id uint64) (*proposal.Proposal, error)

	// List retrieves proposals with an optional status filter
	List(ctx context.Context, status *proposal.Status, page, pageSize int) ([]*proposal.Proposal, error)

	// Update updates a proposal record
	Update(ctx context.Context, p *proposal.Proposal) error
}

// AuctionRepository defines the interface for auction data operations
type AuctionRepository interface {
	// Create creates a new auction record
	Create(ctx context.Context, a *auction.Auction) error

	// GetByAddress retrieves an auction by its contract address
	GetByAddress(ctx context.Context, addr common.Address) (*auction.Auction, error)

	// List retrieves auctions with an optional status filter
	List(ctx context.Context, status *auction.Status, page, pageSize int) ([]*auction.Auction, error)

	// Update updates an auction record
	Update(ctx context.Context, a *auction.Auction) error
}

// BidRepository defines the interface for bid data operations
type BidRepository interface {
	// Create creates a new bid record
	Create(ctx context.Context, b *bid.Bid) error

	// GetByAuction retrieves all bids for an auction, highest first
	GetByAuction(ctx context.Context, addr common.Address) ([]*bid.Bid, error)

	// GetByTxHash retrieves a bid by its transaction hash
	GetByTxHash(ctx context.Context, txHash common.Hash) (*bid.Bid, error)

	// GetHighest retrieves the highest confirmed bid for an auction
	GetHighest(ctx context.Context, addr common.Address) (*bid.Bid, error)

	// Update updates a bid record
	Update(ctx context.Context, b *bid.Bid) error

	// RecordBidWithOCC inserts a confirmed bid and advances the auction's
	// highest bid using optimistic concurrency control: the update only
	// applies while the auction's highest bid still matches expectedHighest.
	RecordBidWithOCC(ctx context.Context, b *bid.Bid, expectedHighest decimal.Decimal) error
}

// ReviewerRepository defines the interface for reviewer grant operations
type ReviewerRepository interface {
	// Save records a reviewer grant
	Save(ctx context.Context, grant *shared.ReviewerGrant) error

	// IsReviewer reports whether the address holds the reviewer role
	IsReviewer(ctx context.Context, addr common.Address) (bool, error)

	// List retrieves all reviewer grants
	List(ctx context.Context) ([]*shared.ReviewerGrant, error)
}

// CursorRepository persists the indexer's block cursor
type CursorRepository interface {
	// LastProcessedBlock returns the highest fully indexed block
	LastProcessedBlock(ctx context.Context) (uint64, error)

	// SetLastProcessedBlock advances the cursor
	SetLastProcessedBlock(ctx context.Context, block uint64) error
}
