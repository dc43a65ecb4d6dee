package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Bykamri/dev-elaction-sub000/internal/adapters/scheduler"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/auction"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/metadata"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/proposal"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/inbound"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/outbound"
)

// ProposalService implements the proposal use cases
type ProposalService struct {
	proposalRepo outbound.ProposalRepository
	auctionRepo  outbound.AuctionRepository
	reviewerRepo outbound.ReviewerRepository
	gateway      outbound.ChainGateway
	pinner       outbound.Pinner
	fetcher      outbound.MetadataFetcher
	broadcaster  outbound.Broadcaster
	scheduler    *scheduler.SettlementScheduler
	logger       zerolog.Logger
}

type ProposalServiceParams struct {
	ProposalRepo outbound.ProposalRepository
	AuctionRepo  outbound.AuctionRepository
	ReviewerRepo outbound.ReviewerRepository
	Gateway      outbound.ChainGateway
	Pinner       outbound.Pinner
	Fetcher      outbound.MetadataFetcher
	Broadcaster  outbound.Broadcaster
	Scheduler    *scheduler.SettlementScheduler
	Logger       zerolog.Logger
}

// NewProposalService creates a new proposal service
func NewProposalService(params ProposalServiceParams) *ProposalService {
	return &ProposalService{
		proposalRepo: params.ProposalRepo,
		auctionRepo:  params.AuctionRepo,
		reviewerRepo: params.ReviewerRepo,
		gateway:      params.Gateway,
		pinner:       params.Pinner,
		fetcher:      params.Fetcher,
		broadcaster:  params.Broadcaster,
		scheduler:    params.Scheduler,
		logger:       params.Logger.With().Str("component", "proposal_service").Logger(),
	}
}

// SubmitApplication pins the asset images and metadata to IPFS, relays
// the proposal to the factory, and records a pending proposal row.
func (service *ProposalService) SubmitApplication(ctx context.Context, req inbound.SubmitApplicationRequest) (*inbound.SubmitApplicationResult, error) {
	service.logger.Info().
		Str("proposer", req.Proposer.Hex()).
		Str("name", req.Name).
		Str("starting_bid", req.StartingBid.String()).
		Dur("duration", req.Duration).
		Int("images", len(req.Images)).
		Msg("Attempting to submit application")

	if req.Proposer == (common.Address{}) {
		return nil, shared.ErrInvalidAddress
	}
	if req.StartingBid.LessThanOrEqual(decimal.Zero) {
		service.logger.Warn().Str("starting_bid", req.StartingBid.String()).Msg("Starting bid must be greater than 0")
		return nil, shared.ErrInvalidStartingBid
	}
	if req.Duration <= 0 {
		service.logger.Warn().Dur("duration", req.Duration).Msg("Duration must be greater than 0")
		return nil, shared.ErrInvalidDuration
	}
	if len(req.Images) == 0 {
		return nil, shared.ErrNoImagesProvided
	}

	if req.Name == "" {
		return nil, shared.ErrMetadataNameRequired
	}

	doc := &metadata.Document{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Attributes:  req.Attributes,
	}

	imageURIs := make([]string, 0, len(req.Images))
	for i, image := range req.Images {
		uri, err := service.pinner.PinFile(ctx, fmt.Sprintf("%s-%d-%s", req.Name, i, image.Filename), image.Content)
		if err != nil {
			service.logger.Error().Err(err).Str("filename", image.Filename).Msg("Failed to pin image")
			return nil, err
		}
		imageURIs = append(imageURIs, uri)
	}
	doc.SetImages(imageURIs)

	if err := doc.Validate(); err != nil {
		service.logger.Warn().Err(err).Msg("Invalid metadata document")
		return nil, err
	}

	metadataURI, err := service.pinner.PinJSON(ctx, req.Name, doc)
	if err != nil {
		service.logger.Error().Err(err).Str("name", req.Name).Msg("Failed to pin metadata document")
		return nil, err
	}

	service.logger.Debug().
		Str("metadata_uri", metadataURI).
		Msg("Metadata pinned")

	proposalID, txHash, err := service.gateway.SubmitProposal(ctx, req.Proposer, metadataURI, req.StartingBid.BigInt(), req.Duration)
	if err != nil {
		service.logger.Error().Err(err).Str("proposer", req.Proposer.Hex()).Msg("Failed to submit proposal on chain")
		return nil, err
	}

	now := time.Now()
	p := &proposal.Proposal{
		ID:           proposalID,
		Proposer:     req.Proposer,
		MetadataURI:  metadataURI,
		StartingBid:  req.StartingBid,
		Duration:     req.Duration,
		Status:       proposal.StatusPending,
		SubmitTxHash: txHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := service.proposalRepo.Create(ctx, p); err != nil {
		// The chain already holds the proposal, so the indexer will pick
		// it up even if this write is lost.
		service.logger.Error().Err(err).Uint64("proposal_id", proposalID).Msg("Failed to save proposal to database")
		return nil, err
	}

	service.logger.Info().
		Uint64("proposal_id", proposalID).
		Str("tx_hash", txHash.Hex()).
		Msg("Application submitted successfully")

	return &inbound.SubmitApplicationResult{
		ProposalID:  proposalID,
		MetadataURI: metadataURI,
		TxHash:      txHash,
	}, nil
}

// GetProposal retrieves a proposal and resolves its metadata document
func (service *ProposalService) GetProposal(ctx context.Context, id uint64) (*inbound.ProposalDetail, error) {
	service.logger.Debug().Uint64("proposal_id", id).Msg("Retrieving proposal")

	p, err := service.proposalRepo.GetByID(ctx, id)
	if err != nil {
		service.logger.Error().Err(err).Uint64("proposal_id", id).Msg("Failed to retrieve proposal")
		return nil, err
	}

	return &inbound.ProposalDetail{
		Proposal: p,
		Metadata: service.resolveMetadata(ctx, p.MetadataURI),
	}, nil
}

// ListProposals retrieves a list of proposals
func (service *ProposalService) ListProposals(ctx context.Context, req inbound.ListProposalsRequest) ([]*proposal.Proposal, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}

	return service.proposalRepo.List(ctx, req.Status, req.Page, req.PageSize)
}

// ReviewAndLaunchAuction approves a pending proposal on chain and
// records the launched auction.
func (service *ProposalService) ReviewAndLaunchAuction(ctx context.Context, req inbound.ReviewRequest) (*auction.Auction, error) {
	service.logger.Info().
		Uint64("proposal_id", req.ProposalID).
		Str("reviewer", req.Reviewer.Hex()).
		Msg("Attempting to review and launch auction")

	if err := service.requireReviewer(ctx, req.Reviewer); err != nil {
		return nil, err
	}

	p, err := service.proposalRepo.GetByID(ctx, req.ProposalID)
	if err != nil {
		service.logger.Error().Err(err).Uint64("proposal_id", req.ProposalID).Msg("Proposal not found")
		return nil, err
	}
	if !p.CanReview() {
		service.logger.Warn().
			Uint64("proposal_id", p.ID).
			Str("status", string(p.Status)).
			Msg("Proposal is not pending review")
		return nil, shared.ErrProposalNotPending
	}

	auctionAddr, txHash, err := service.gateway.ReviewAndLaunchAuction(ctx, req.ProposalID)
	if err != nil {
		service.logger.Error().Err(err).Uint64("proposal_id", req.ProposalID).Msg("Failed to launch auction on chain")
		return nil, err
	}

	if err := p.Approve(auctionAddr, req.Reviewer); err != nil {
		return nil, err
	}
	if err := service.proposalRepo.Update(ctx, p); err != nil {
		service.logger.Error().Err(err).Uint64("proposal_id", p.ID).Msg("Failed to update approved proposal")
		return nil, err
	}

	state, err := service.gateway.AuctionState(ctx, auctionAddr)
	if err != nil {
		service.logger.Error().Err(err).Str("auction", auctionAddr.Hex()).Msg("Failed to read launched auction state")
		return nil, err
	}

	now := time.Now()
	a := &auction.Auction{
		Address:      auctionAddr,
		ProposalID:   p.ID,
		Seller:       state.Seller,
		NFTContract:  state.NFTContract,
		NFTTokenID:   decimal.NewFromBigInt(state.NFTTokenID, 0),
		PaymentToken: state.PaymentToken,
		MetadataURI:  p.MetadataURI,
		StartingBid:  p.StartingBid,
		HighestBid:   decimal.NewFromBigInt(state.HighestBid, 0),
		EndTime:      state.EndTime,
		Status:       auction.StatusLive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := service.auctionRepo.Create(ctx, a); err != nil {
		service.logger.Error().Err(err).Str("auction", auctionAddr.Hex()).Msg("Failed to save auction to database")
		return nil, err
	}

	if service.scheduler != nil {
		if err := service.scheduler.ScheduleSettlement(a.Address, a.EndTime); err != nil {
			service.logger.Error().Err(err).Str("auction", a.Address.Hex()).Msg("Failed to schedule auction for settlement")
		}
	}

	service.publish(ctx, a.Address, outbound.Event{
		Type:           outbound.EventTypeProposalReviewed,
		AuctionAddress: a.Address,
		Data: map[string]interface{}{
			"proposal_id": p.ID,
			"reviewer":    req.Reviewer.Hex(),
			"approved":    true,
		},
	})

	service.publish(ctx, a.Address, outbound.Event{
		Type:           outbound.EventTypeAuctionLaunched,
		AuctionAddress: a.Address,
		Data: map[string]interface{}{
			"proposal_id":  p.ID,
			"reviewer":     req.Reviewer.Hex(),
			"tx_hash":      txHash.Hex(),
			"end_time":     a.EndTime.Unix(),
			"starting_bid": a.StartingBid.String(),
		},
	})

	service.logger.Info().
		Uint64("proposal_id", p.ID).
		Str("auction", a.Address.Hex()).
		Str("tx_hash", txHash.Hex()).
		Msg("Auction launched successfully")

	return a, nil
}

// RejectProposal rejects a pending proposal on chain
func (service *ProposalService) RejectProposal(ctx context.Context, req inbound.ReviewRequest) error {
	service.logger.Info().
		Uint64("proposal_id", req.ProposalID).
		Str("reviewer", req.Reviewer.Hex()).
		Msg("Attempting to reject proposal")

	if err := service.requireReviewer(ctx, req.Reviewer); err != nil {
		return err
	}

	p, err := service.proposalRepo.GetByID(ctx, req.ProposalID)
	if err != nil {
		service.logger.Error().Err(err).Uint64("proposal_id", req.ProposalID).Msg("Proposal not found")
		return err
	}
	if !p.CanReview() {
		return shared.ErrProposalNotPending
	}

	if _, err := service.gateway.RejectProposal(ctx, req.ProposalID); err != nil {
		service.logger.Error().Err(err).Uint64("proposal_id", req.ProposalID).Msg("Failed to reject proposal on chain")
		return err
	}

	if err := p.Reject(req.Reviewer); err != nil {
		return err
	}
	if err := service.proposalRepo.Update(ctx, p); err != nil {
		service.logger.Error().Err(err).Uint64("proposal_id", p.ID).Msg("Failed to update rejected proposal")
		return err
	}

	service.logger.Info().Uint64("proposal_id", p.ID).Msg("Proposal rejected successfully")
	return nil
}

// requireReviewer checks the reviewer grant table first and falls back
// to the on-chain role when no grant is recorded.
func (service *ProposalService) requireReviewer(ctx context.Context, addr common.Address) error {
	granted, err := service.reviewerRepo.IsReviewer(ctx, addr)
	if err != nil {
		return err
	}
	if granted {
		return nil
	}

	hasRole, err := service.gateway.HasRole(ctx, addr)
	if err != nil {
		return err
	}
	if !hasRole {
		service.logger.Warn().Str("address", addr.Hex()).Msg("Caller does not hold the reviewer role")
		return shared.ErrReviewerRequired
	}
	return nil
}

func (service *ProposalService) resolveMetadata(ctx context.Context, uri string) *metadata.Document {
	var doc metadata.Document
	if err := service.fetcher.FetchJSON(ctx, uri, &doc); err != nil {
		service.logger.Warn().Err(err).Str("uri", uri).Msg("Failed to fetch metadata, using placeholder")
		return metadata.Placeholder()
	}
	return &doc
}

func (service *ProposalService) publish(ctx context.Context, auctionAddr common.Address, event outbound.Event) {
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
