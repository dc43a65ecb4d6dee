package auction

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Status represents the current status of an auction contract.
type Status string

const (
	StatusLive     Status = "live"
	StatusFinished Status = "finished"
)

// Auction mirrors a per-auction contract deployed by the factory. The
// address is the primary key; all amounts are payment-token base units.
type Auction struct {
	Address       common.Address  `json:"address"`
	ProposalID    uint64          `json:"proposal_id"`
	Seller        common.Address  `json:"seller"`
	NFTContract   common.Address  `json:"nft_contract"`
	NFTTokenID    decimal.Decimal `json:"nft_token_id"`
	PaymentToken  common.Address  `json:"payment_token"`
	MetadataURI   string          `json:"metadata_uri"`
	StartingBid   decimal.Decimal `json:"starting_bid"`
	HighestBid    decimal.Decimal `json:"highest_bid"`
	HighestBidder *common.Address `json:"highest_bidder,omitempty"`
	EndTime       time.Time       `json:"end_time"`
	Status        Status          `json:"status"`
	FinalizeTx    *common.Hash    `json:"finalize_tx,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsLive returns true if the auction is still open.
func (a *Auction) IsLive() bool {
	return a.Status == StatusLive
}

// IsFinished returns true if the auction has been finalized.
func (a *Auction) IsFinished() bool {
	return a.Status == StatusFinished
}

// Ended reports whether the auction's end time has passed at the given instant.
func (a *Auction) Ended(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// CanBid returns true if a bid can be placed on this auction right now.
func (a *Auction) CanBid(now time.Time) bool {
	return a.IsLive() && !a.Ended(now)
}

// MinimumBid returns the smallest amount that would currently be accepted.
// The first bid must meet the starting bid; later bids must exceed the highest.
func (a *Auction) MinimumBid() decimal.Decimal {
	if a.HighestBid.IsZero() {
		return a.StartingBid
	}
	return a.HighestBid.Add(decimal.NewFromInt(1))
}

// ApplyBid records a new highest bid if it beats the current one.
func (a *Auction) ApplyBid(bidder common.Address, amount decimal.Decimal) {
	if amount.GreaterThan(a.HighestBid) {
		a.HighestBid = amount
		a.HighestBidder = &bidder
		a.UpdatedAt = time.Now()
	}
}

// Finalize marks the auction as settled.
func (a *Auction) Finalize(txHash common.Hash) {
	a.Status = StatusFinished
	a.FinalizeTx = &txHash
	a.UpdatedAt = time.Now()
}
