package proposal

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
)

// Status represents the review status of a proposal. The values mirror the
// status enum held by the auction factory contract.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
	StatusLive     Status = "live"
	StatusFinished Status = "finished"
)

// Proposal represents a customer's request to auction an asset. The
// factory assigns the on-chain id; the service mirrors the record and
// tracks the review lifecycle.
type Proposal struct {
	ID             uint64          `json:"id"`
	Proposer       common.Address  `json:"proposer"`
	MetadataURI    string          `json:"metadata_uri"`
	StartingBid    decimal.Decimal `json:"starting_bid"`
	Duration       time.Duration   `json:"duration"`
	Status         Status          `json:"status"`
	AuctionAddress *common.Address `json:"auction_address,omitempty"`
	ReviewedBy     *common.Address `json:"reviewed_by,omitempty"`
	SubmitTxHash   common.Hash     `json:"submit_tx_hash"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsPending returns true if the proposal is awaiting review.
func (p *Proposal) IsPending() bool {
	return p.Status == StatusPending
}

// CanReview returns true if an approve/reject decision may still be taken.
func (p *Proposal) CanReview() bool {
	return p.Status == StatusPending
}

// Approve marks the proposal as launched, recording the deployed auction
// contract and the reviewer that took the decision.
func (p *Proposal) Approve(auctionAddr, reviewer common.Address) error {
	if !p.CanReview() {
		return shared.ErrProposalNotPending
	}
	p.Status = StatusLive
	p.AuctionAddress = &auctionAddr
	p.ReviewedBy = &reviewer
	p.UpdatedAt = time.Now()
	return nil
}

// Reject marks the proposal as rejected.
func (p *Proposal) Reject(reviewer common.Address) error {
	if !p.CanReview() {
		return shared.ErrProposalNotPending
	}
	p.Status = StatusRejected
	p.ReviewedBy = &reviewer
	p.UpdatedAt = time.Now()
	return nil
}

// Finish marks a live proposal's auction as settled.
func (p *Proposal) Finish() error {
	if p.Status != StatusLive {
		return shared.ErrAuctionAlreadyFinished
	}
	p.Status = StatusFinished
	p.UpdatedAt = time.Now()
	return nil
}
