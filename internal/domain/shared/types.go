package shared

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// SettlementResult represents the outcome of finalizing an auction.
type SettlementResult struct {
	AuctionAddress common.Address
	Winner         *common.Address
	FinalPrice     *decimal.Decimal
	TxHash         common.Hash
	Status         string
}
