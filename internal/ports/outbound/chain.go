package outbound

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// AuctionState is the raw contract state read from an auction instance.
type AuctionState struct {
	Seller        common.Address
	NFTContract   common.Address
	NFTTokenID    *big.Int
	PaymentToken  common.Address
	HighestBid    *big.Int
	HighestBidder common.Address
	EndTime       time.Time
}

// ChainGateway defines the interface for factory and auction contract calls.
// Write operations are signed by the service's operator wallet; raw
// transactions arrive pre-signed by the bidder's own wallet.
type ChainGateway interface {
	// SubmitProposal relays a proposal submission to the factory and
	// returns the on-chain proposal id assigned by the contract.
	SubmitProposal(ctx context.Context, proposer common.Address, metadataURI string, startingBid *big.Int, duration time.Duration) (uint64, common.Hash, error)

	// ReviewAndLaunchAuction approves a pending proposal; the factory
	// deploys the auction contract whose address is returned.
	ReviewAndLaunchAuction(ctx context.Context, proposalID uint64) (common.Address, common.Hash, error)

	// RejectProposal rejects a pending proposal.
	RejectProposal(ctx context.Context, proposalID uint64) (common.Hash, error)

	// FinalizeAuction settles an ended auction through the factory.
	FinalizeAuction(ctx context.Context, proposalID uint64) (common.Hash, error)

	// AddReviewer grants the reviewer role on the factory.
	AddReviewer(ctx context.Context, addr common.Address) (common.Hash, error)

	// HasRole reports whether the address holds the reviewer role on chain.
	HasRole(ctx context.Context, addr common.Address) (bool, error)

	// AuctionState reads the live state of an auction contract.
	AuctionState(ctx context.Context, auctionAddr common.Address) (*AuctionState, error)

	// BroadcastRawTransaction submits a pre-signed transaction.
	BroadcastRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error)

	// WaitMined blocks until a receipt is available or the context expires.
	WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// TokenReader defines the ERC-20 read surface used for bid preflight.
type TokenReader interface {
	// Allowance returns the amount owner has approved for spender.
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)

	// BalanceOf returns the owner's token balance.
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
}
