package shared

import "errors"

// Domain-specific errors
var (
	// Proposal errors
	ErrProposalNotFound     = errors.New("proposal not found")
	ErrProposalNotPending   = errors.New("proposal is not pending review")
	ErrProposalAlreadyLive  = errors.New("proposal already launched as auction")
	ErrInvalidStartingBid   = errors.New("starting bid must be greater than 0")
	ErrInvalidDuration      = errors.New("auction duration must be greater than 0")
	ErrMetadataURIRequired  = errors.New("metadata URI is required")
	ErrMetadataNameRequired = errors.New("asset name is required")
	ErrNoImagesProvided     = errors.New("at least one asset image is required")

	// Auction errors
	ErrAuctionNotFound         = errors.New("auction not found")
	ErrAuctionNotAcceptingBids = errors.New("auction is not accepting bids")
	ErrAuctionNotEnded         = errors.New("auction has not reached its end time")
	ErrAuctionAlreadyFinished  = errors.New("auction already finalized")

	// Bid errors
	ErrBidAmountInvalid      = errors.New("bid amount must be greater than 0")
	ErrBidBelowHighest       = errors.New("bid amount must be higher than current highest bid")
	ErrBidBelowStarting      = errors.New("bid amount must be at least the starting bid")
	ErrNoBidsFound           = errors.New("no bids found")
	ErrInsufficientAllowance = errors.New("token allowance does not cover bid amount")
	ErrInsufficientBalance   = errors.New("token balance does not cover bid amount")
	ErrSignedTxRequired      = errors.New("signed transaction is required")

	// Role errors
	ErrReviewerRequired = errors.New("caller does not hold the reviewer role")
	ErrReviewerExists   = errors.New("address already holds the reviewer role")

	// Validation errors
	ErrInvalidAddress    = errors.New("invalid address format")
	ErrInvalidProposalID = errors.New("invalid proposal id")
	ErrInvalidRequest    = errors.New("invalid request")

	// Chain errors
	ErrTransactionFailed = errors.New("transaction reverted on chain")
	ErrReceiptTimeout    = errors.New("timed out waiting for transaction receipt")
	ErrChainUnavailable  = errors.New("chain rpc unavailable")

	// Pinning errors
	ErrPinningFailed    = errors.New("pinning to ipfs failed")
	ErrMetadataNotFound = errors.New("metadata document not found")

	// Database errors
	ErrDatabaseConnection  = errors.New("database connection failed")
	ErrDatabaseQuery       = errors.New("database query failed")
	ErrDatabaseTransaction = errors.New("database transaction failed")

	// WebSocket message validation errors
	ErrMessageTypeRequired = errors.New("message type is required")
	ErrAuctionAddrRequired = errors.New("auction address is required")
	ErrUnknownMessageType  = errors.New("unknown message type")

	// Broadcasting errors
	ErrBroadcastFailed            = errors.New("broadcast failed")
	ErrClientEventChannelNotFound = errors.New("client event channel not found")
)
