package app

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/bid"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/inbound"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/outbound"
)

// BidService implements the bid relay use cases
type BidService struct {
	bidRepo     outbound.BidRepository
	auctionRepo outbound.AuctionRepository
	gateway     outbound.ChainGateway
	tokenReader outbound.TokenReader
	broadcaster outbound.Broadcaster
	logger      zerolog.Logger
}

type BidServiceParams struct {
	BidRepo     outbound.BidRepository
	AuctionRepo outbound.AuctionRepository
	Gateway     outbound.ChainGateway
	TokenReader outbound.TokenReader
	Broadcaster outbound.Broadcaster
	Logger      zerolog.Logger
}

// NewBidService creates a new bid service
func NewBidService(params BidServiceParams) *BidService {
	return &BidService{
		bidRepo:     params.BidRepo,
		auctionRepo: params.AuctionRepo,
		gateway:     params.Gateway,
		tokenReader: params.TokenReader,
		broadcaster: params.Broadcaster,
		logger:      params.Logger.With().Str("component", "bid_service").Logger(),
	}
}

// PlaceBid validates a pre-signed bid transaction against the read
// model and token state, relays it to the chain, and records the
// confirmed bid.
func (service *BidService) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*bid.Bid, error) {
	service.logger.Info().
		Str("auction", req.AuctionAddress.Hex()).
		Str("bidder", req.Bidder.Hex()).
		Str("amount", req.Amount.String()).
		Msg("Attempting to place bid")

	if len(req.SignedTx) == 0 {
		return nil, shared.ErrSignedTxRequired
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		service.logger.Warn().Str("amount", req.Amount.String()).Msg("Bid amount must be greater than 0")
		return nil, shared.ErrBidAmountInvalid
	}

	a, err := service.auctionRepo.GetByAddress(ctx, req.AuctionAddress)
	if err != nil {
		service.logger.Error().Err(err).Str("auction", req.AuctionAddress.Hex()).Msg("Auction not found")
		return nil, err
	}

	now := time.Now()
	if !a.CanBid(now) {
		service.logger.Warn().
			Str("auction", a.Address.Hex()).
			Str("status", string(a.Status)).
			Time("end_time", a.EndTime).
			Msg("Auction is not accepting bids")
		return nil, shared.ErrAuctionNotAcceptingBids
	}

	minimum := a.MinimumBid()
	if req.Amount.LessThan(minimum) {
		service.logger.Warn().
			Str("amount", req.Amount.String()).
			Str("minimum", minimum.String()).
			Msg("Bid below minimum")
		if a.HighestBidder == nil {
			return nil, shared.ErrBidBelowStarting
		}
		return nil, shared.ErrBidBelowHighest
	}

	// Preflight the payment token so an underfunded bid fails here
	// instead of burning gas on a revert.
	allowance, err := service.tokenReader.Allowance(ctx, a.PaymentToken, req.Bidder, a.Address)
	if err != nil {
		service.logger.Error().Err(err).Str("bidder", req.Bidder.Hex()).Msg("Failed to read token allowance")
		return nil, err
	}
	if decimal.NewFromBigInt(allowance, 0).LessThan(req.Amount) {
		service.logger.Warn().
			Str("bidder", req.Bidder.Hex()).
			Str("allowance", allowance.String()).
			Str("amount", req.Amount.String()).
			Msg("Insufficient token allowance")
		return nil, shared.ErrInsufficientAllowance
	}

	balance, err := service.tokenReader.BalanceOf(ctx, a.PaymentToken, req.Bidder)
	if err != nil {
		service.logger.Error().Err(err).Str("bidder", req.Bidder.Hex()).Msg("Failed to read token balance")
		return nil, err
	}
	if decimal.NewFromBigInt(balance, 0).LessThan(req.Amount) {
		service.logger.Warn().
			Str("bidder", req.Bidder.Hex()).
			Str("balance", balance.String()).
			Str("amount", req.Amount.String()).
			Msg("Insufficient token balance")
		return nil, shared.ErrInsufficientBalance
	}

	txHash, err := service.gateway.BroadcastRawTransaction(ctx, req.SignedTx)
	if err != nil {
		service.logger.Error().Err(err).Str("bidder", req.Bidder.Hex()).Msg("Failed to broadcast bid transaction")
		return nil, err
	}

	b := &bid.Bid{
		ID:             uuid.New(),
		AuctionAddress: a.Address,
		Bidder:         req.Bidder,
		Amount:         req.Amount,
		TxHash:         txHash,
		Status:         bid.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := service.bidRepo.Create(ctx, b); err != nil {
		service.logger.Error().Err(err).Str("tx_hash", txHash.Hex()).Msg("Failed to save pending bid")
		return nil, err
	}

	service.logger.Debug().
		Str("bid_id", b.ID.String()).
		Str("tx_hash", txHash.Hex()).
		Msg("Bid transaction broadcast, waiting for receipt")

	receipt, err := service.gateway.WaitMined(ctx, txHash)
	if err != nil || receipt.Status == 0 {
		b.Fail()
		if updateErr := service.bidRepo.Update(ctx, b); updateErr != nil {
			service.logger.Error().Err(updateErr).Str("bid_id", b.ID.String()).Msg("Failed to mark bid failed")
		}
		if err == nil {
			err = shared.ErrTransactionFailed
		}
		service.logger.Error().Err(err).Str("tx_hash", txHash.Hex()).Msg("Bid transaction failed")
		return nil, err
	}

	b.Confirm(receipt.BlockNumber.Uint64())
	if err := service.bidRepo.RecordBidWithOCC(ctx, b, a.HighestBid); err != nil {
		if errors.Is(err, shared.ErrBidBelowHighest) {
			// A competing bid landed first. The indexer reconciles the
			// chain's actual highest bid, so the row stays as recorded.
			service.logger.Warn().
				Str("bid_id", b.ID.String()).
				Msg("Bid confirmed but superseded by a higher concurrent bid")
			return nil, shared.ErrBidBelowHighest
		}
		service.logger.Error().Err(err).Str("bid_id", b.ID.String()).Msg("Failed to record confirmed bid")
		return nil, err
	}

	service.publish(ctx, a.Address, outbound.Event{
		Type:           outbound.EventTypeBidPlaced,
		AuctionAddress: a.Address,
		Data: map[string]interface{}{
			"bid_id":  b.ID,
			"bidder":  b.Bidder.Hex(),
			"amount":  b.Amount.String(),
			"tx_hash": b.TxHash.Hex(),
		},
	})

	service.logger.Info().
		Str("bid_id", b.ID.String()).
		Str("auction", a.Address.Hex()).
		Str("amount", b.Amount.String()).
		Uint64("block", b.BlockNumber).
		Msg("Bid placed successfully")

	return b, nil
}

// GetBids retrieves the bids for an auction
func (service *BidService) GetBids(ctx context.Context, addr common.Address) ([]*bid.Bid, error) {
	if _, err := service.auctionRepo.GetByAddress(ctx, addr); err != nil {
		return nil, err
	}
	return service.bidRepo.GetByAuction(ctx, addr)
}

// GetHighestBid retrieves the highest confirmed bid for an auction
func (service *BidService) GetHighestBid(ctx context.Context, addr common.Address) (*bid.Bid, error) {
	if _, err := service.auctionRepo.GetByAddress(ctx, addr); err != nil {
		return nil, err
	}
	return service.bidRepo.GetHighest(ctx, addr)
}

func (service *BidService) publish(ctx context.Context, auctionAddr common.Address, event outbound.Event) {
	if service.broadcaster == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	if err := service.broadcaster.Publish(ctx, auctionAddr, event); err != nil {
		service.logger.Error().Err(err).Str("auction", auctionAddr.Hex()).Msg("Failed to broadcast event")
	}
}
