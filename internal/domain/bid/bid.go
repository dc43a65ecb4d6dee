package bid

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the status of a bid record.
type Status string

const (
	// StatusPending means the bid transaction was broadcast but the
	// receipt has not yet been observed.
	StatusPending Status = "pending"
	// StatusConfirmed means the Bid event was observed on chain.
	StatusConfirmed Status = "confirmed"
	// StatusFailed means the bid transaction reverted.
	StatusFailed Status = "failed"
)

// Bid represents a bid on an auction, keyed by a service-side surrogate
// id; the transaction hash ties it back to the chain.
type Bid struct {
	ID             uuid.UUID       `json:"id"`
	AuctionAddress common.Address  `json:"auction_address"`
	Bidder         common.Address  `json:"bidder"`
	Amount         decimal.Decimal `json:"amount"`
	TxHash         common.Hash     `json:"tx_hash"`
	BlockNumber    uint64          `json:"block_number"`
	Status         Status          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsValid returns true if the bid amount is valid (greater than 0).
func (b *Bid) IsValid() bool {
	return b.Amount.IsPositive()
}

// Confirm marks the bid as observed on chain at the given block.
func (b *Bid) Confirm(blockNumber uint64) {
	b.Status = StatusConfirmed
	b.BlockNumber = blockNumber
	b.UpdatedAt = time.Now()
}

// Fail marks the bid transaction as reverted.
func (b *Bid) Fail() {
	b.Status = StatusFailed
	b.UpdatedAt = time.Now()
}

// IsConfirmed returns true if the bid was observed on chain.
func (b *Bid) IsConfirmed() bool {
	return b.Status == StatusConfirmed
}
