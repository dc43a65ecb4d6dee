package inbound

import (
	"context"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/auction"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/bid"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/metadata"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/proposal"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
)

// ProposalService defines the interface for proposal operations
type ProposalService interface {
	// SubmitApplication pins the asset images and metadata, relays the
	// proposal to the factory, and records a pending proposal.
	SubmitApplication(ctx context.Context, req SubmitApplicationRequest) (*SubmitApplicationResult, error)

	// GetProposal retrieves a proposal and its metadata document
	GetProposal(ctx context.Context, id uint64) (*ProposalDetail, error)

	// ListProposals retrieves a list of proposals
	ListProposals(ctx context.Context, req ListProposalsRequest) ([]*proposal.Proposal, error)

	// ReviewAndLaunchAuction approves a pending proposal and launches its auction
	ReviewAndLaunchAuction(ctx context.Context, req ReviewRequest) (*auction.Auction, error)

	// RejectProposal rejects a pending proposal
	RejectProposal(ctx context.Context, req ReviewRequest) error
}

// AuctionService defines the interface for auction operations
type AuctionService interface {
	// GetAuction retrieves an auction and its metadata document
	GetAuction(ctx context.Context, addr common.Address) (*AuctionDetail, error)

	// ListAuctions retrieves a list of auctions
	ListAuctions(ctx context.Context, req ListAuctionsRequest) ([]*auction.Auction, error)

	// FinalizeAuction settles an ended auction on behalf of a reviewer
	FinalizeAuction(ctx context.Context, caller, addr common.Address) (*shared.SettlementResult, error)
}

// BidService defines the interface for bid operations
type BidService interface {
	// PlaceBid validates and relays a pre-signed bid transaction
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*bid.Bid, error)

	// GetBids retrieves bids for an auction
	GetBids(ctx context.Context, addr common.Address) ([]*bid.Bid, error)

	// GetHighestBid retrieves the highest confirmed bid for an auction
	GetHighestBid(ctx context.Context, addr common.Address) (*bid.Bid, error)
}

// RoleService defines the interface for reviewer role operations
type RoleService interface {
	// AddReviewer grants the reviewer role to an address
	AddReviewer(ctx context.Context, caller, addr common.Address) (*shared.ReviewerGrant, error)

	// IsReviewer reports whether the address holds the reviewer role
	IsReviewer(ctx context.Context, addr common.Address) (bool, error)
}

// ImageUpload is one asset image attached to an application.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// request to submit an asset application
type SubmitApplicationRequest struct {
	Proposer    common.Address
	Name        string
	Description string
	Category    string
	Attributes  []metadata.Attribute
	StartingBid decimal.Decimal
	Duration    time.Duration
	Images      []ImageUpload
}

// SubmitApplicationResult is returned after a successful application.
type SubmitApplicationResult struct {
	ProposalID  uint64      `json:"proposal_id"`
	MetadataURI string      `json:"metadata_uri"`
	TxHash      common.Hash `json:"tx_hash"`
}

// ProposalDetail pairs a proposal with its resolved metadata document.
type ProposalDetail struct {
	Proposal *proposal.Proposal `json:"proposal"`
	Metadata *metadata.Document `json:"metadata"`
}

// AuctionDetail pairs an auction with its resolved metadata document.
type AuctionDetail struct {
	Auction  *auction.Auction   `json:"auction"`
	Metadata *metadata.Document `json:"metadata"`
}

// request to review a proposal
type ReviewRequest struct {
	ProposalID uint64         `json:"proposal_id"`
	Reviewer   common.Address `json:"reviewer"`
}

// request to list proposals
type ListProposalsRequest struct {
	Status   *proposal.Status `json:"status,omitempty"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// request to list auctions
type ListAuctionsRequest struct {
	Status   *auction.Status `json:"status,omitempty"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// request to place a bid through the relay
type PlaceBidRequest struct {
	AuctionAddress common.Address  `json:"auction_address"`
	Bidder         common.Address  `json:"bidder"`
	Amount         decimal.Decimal `json:"amount"`
	SignedTx       []byte          `json:"signed_tx"`
}
