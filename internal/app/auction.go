package app

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/auction"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/metadata"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/inbound"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/outbound"
)

// AuctionService implements the auction use cases and scheduler.SettlementService
type AuctionService struct {
	auctionRepo  outbound.AuctionRepository
	proposalRepo outbound.ProposalRepository
	bidRepo      outbound.BidRepository
	reviewerRepo outbound.ReviewerRepository
	gateway      outbound.ChainGateway
	fetcher      outbound.MetadataFetcher
	logger       zerolog.Logger
}

type AuctionServiceParams struct {
	AuctionRepo  outbound.AuctionRepository
	ProposalRepo outbound.ProposalRepository
	BidRepo      outbound.BidRepository
	ReviewerRepo outbound.ReviewerRepository
	Gateway      outbound.ChainGateway
	Fetcher      outbound.MetadataFetcher
	Logger       zerolog.Logger
}

// NewAuctionService creates a new auction service
func NewAuctionService(params AuctionServiceParams) *AuctionService {
	return &AuctionService{
		auctionRepo:  params.AuctionRepo,
		proposalRepo: params.ProposalRepo,
		bidRepo:      params.BidRepo,
		reviewerRepo: params.ReviewerRepo,
		gateway:      params.Gateway,
		fetcher:      params.Fetcher,
		logger:       params.Logger.With().Str("component", "auction_service").Logger(),
	}
}

// GetAuction retrieves an auction and resolves its metadata document
func (service *AuctionService) GetAuction(ctx context.Context, addr common.Address) (*inbound.AuctionDetail, error) {
	service.logger.Debug().Str("auction", addr.Hex()).Msg("Retrieving auction")

	a, err := service.auctionRepo.GetByAddress(ctx, addr)
	if err != nil {
		service.logger.Error().Err(err).Str("auction", addr.Hex()).Msg("Failed to retrieve auction")
		return nil, err
	}

	var doc metadata.Document
	detail := &inbound.AuctionDetail{Auction: a}
	if err := service.fetcher.FetchJSON(ctx, a.MetadataURI, &doc); err != nil {
		service.logger.Warn().Err(err).Str("uri", a.MetadataURI).Msg("Failed to fetch metadata, using placeholder")
		detail.Metadata = metadata.Placeholder()
	} else {
		detail.Metadata = &doc
	}

	return detail, nil
}

// ListAuctions retrieves a list of auctions
func (service *AuctionService) ListAuctions(ctx context.Context, req inbound.ListAuctionsRequest) ([]*auction.Auction, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}

	return service.auctionRepo.List(ctx, req.Status, req.Page, req.PageSize)
}

// FinalizeAuction settles an ended auction on behalf of a reviewer. The
// scheduler normally settles auctions on its own; this is the manual
// fallback.
func (service *AuctionService) FinalizeAuction(ctx context.Context, caller, addr common.Address) (*shared.SettlementResult, error) {
	service.logger.Info().
		Str("auction", addr.Hex()).
		Str("caller", caller.Hex()).
		Msg("Manual finalization requested")

	granted, err := service.reviewerRepo.IsReviewer(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !granted {
		hasRole, err := service.gateway.HasRole(ctx, caller)
		if err != nil {
			return nil, err
		}
		if !hasRole {
			service.logger.Warn().Str("caller", caller.Hex()).Msg("Caller does not hold the reviewer role")
			return nil, shared.ErrReviewerRequired
		}
	}

	return service.settle(ctx, addr)
}

// SettleForScheduler implements scheduler.SettlementService
func (service *AuctionService) SettleForScheduler(ctx context.Context, auctionAddr common.Address) (*shared.SettlementResult, error) {
	return service.settle(ctx, auctionAddr)
}

func (service *AuctionService) settle(ctx context.Context, addr common.Address) (*shared.SettlementResult, error) {
	service.logger.Info().Str("auction", addr.Hex()).Msg("Settling auction")

	a, err := service.auctionRepo.GetByAddress(ctx, addr)
	if err != nil {
		service.logger.Error().Err(err).Str("auction", addr.Hex()).Msg("Failed to retrieve auction for settlement")
		return nil, err
	}

	if a.IsFinished() {
		service.logger.Warn().Str("auction", addr.Hex()).Msg("Auction already finished")
		return nil, shared.ErrAuctionAlreadyFinished
	}
	if !a.Ended(time.Now()) {
		service.logger.Warn().
			Str("auction", addr.Hex()).
			Time("end_time", a.EndTime).
			Msg("Auction has not ended yet")
		return nil, shared.ErrAuctionNotEnded
	}

	txHash, err := service.gateway.FinalizeAuction(ctx, a.ProposalID)
	if err != nil {
		service.logger.Error().Err(err).Str("auction", addr.Hex()).Msg("Failed to finalize auction on chain")
		return nil, err
	}

	a.Finalize(txHash)
	if err := service.auctionRepo.Update(ctx, a); err != nil {
		service.logger.Error().Err(err).Str("auction", addr.Hex()).Msg("Failed to update auction in database")
		return nil, err
	}

	if p, err := service.proposalRepo.GetByID(ctx, a.ProposalID); err == nil {
		if err := p.Finish(); err == nil {
			if err := service.proposalRepo.Update(ctx, p); err != nil {
				service.logger.Error().Err(err).Uint64("proposal_id", p.ID).Msg("Failed to mark proposal finished")
			}
		}
	}

	result := &shared.SettlementResult{
		AuctionAddress: a.Address,
		TxHash:         txHash,
		Status:         string(a.Status),
	}

	highest, err := service.bidRepo.GetHighest(ctx, a.Address)
	if err != nil {
		if !errors.Is(err, shared.ErrNoBidsFound) {
			service.logger.Error().Err(err).Str("auction", addr.Hex()).Msg("Failed to get highest bid")
		}
		service.logger.Info().Str("auction", addr.Hex()).Msg("Auction settled with no bids")
		return result, nil
	}

	result.Winner = &highest.Bidder
	result.FinalPrice = &highest.Amount

	service.logger.Info().
		Str("auction", addr.Hex()).
		Str("winner", highest.Bidder.Hex()).
		Str("final_price", highest.Amount.String()).
		Str("tx_hash", txHash.Hex()).
		Msg("Auction settled with winner")

	return result, nil
}
