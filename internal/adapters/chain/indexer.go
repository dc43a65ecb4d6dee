package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/auction"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/bid"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/proposal"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/outbound"
)

// maxLogWindow caps how many blocks one FilterLogs call spans.
const maxLogWindow = 2000

// SettlementScheduler is the slice of the scheduler the indexer needs to
// register reconciled auctions for settlement.
type SettlementScheduler interface {
	ScheduleSettlement(auctionAddr common.Address, endTime time.Time) error
}

// Indexer reconciles on-chain factory and auction events into the read
// model. Bids placed directly from a wallet, and reviews taken by other
// operators, land here rather than through the service's own write paths.
type Indexer struct {
	client       *ethclient.Client
	gateway      outbound.ChainGateway
	factory      common.Address
	proposalRepo outbound.ProposalRepository
	auctionRepo  outbound.AuctionRepository
	bidRepo      outbound.BidRepository
	cursorRepo   outbound.CursorRepository
	broadcaster  outbound.Broadcaster
	scheduler    SettlementScheduler
	pollInterval time.Duration
	confirms     uint64
	logger       zerolog.Logger
	wg           sync.WaitGroup
}

type IndexerParams struct {
	Client       *ethclient.Client
	Gateway      outbound.ChainGateway
	Factory      common.Address
	ProposalRepo outbound.ProposalRepository
	AuctionRepo  outbound.AuctionRepository
	BidRepo      outbound.BidRepository
	CursorRepo   outbound.CursorRepository
	Broadcaster  outbound.Broadcaster
	Scheduler    SettlementScheduler
	PollInterval time.Duration
	Confirms     uint64
	Logger       zerolog.Logger
}

func NewIndexer(params IndexerParams) *Indexer {
	return &Indexer{
		client:       params.Client,
		gateway:      params.Gateway,
		factory:      params.Factory,
		proposalRepo: params.ProposalRepo,
		auctionRepo:  params.AuctionRepo,
		bidRepo:      params.BidRepo,
		cursorRepo:   params.CursorRepo,
		broadcaster:  params.Broadcaster,
		scheduler:    params.Scheduler,
		pollInterval: params.PollInterval,
		confirms:     params.Confirms,
		logger:       params.Logger.With().Str("component", "chain_indexer").Logger(),
	}
}

// Run polls for new logs until the context is cancelled.
func (ix *Indexer) Run(ctx context.Context) {
	ix.wg.Add(1)
	defer ix.wg.Done()

	ix.logger.Info().
		Str("factory", ix.factory.Hex()).
		Dur("poll_interval", ix.pollInterval).
		Msg("Chain indexer started")

	ticker := time.NewTicker(ix.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := ix.process(ctx); err != nil {
				ix.logger.Error().Err(err).Msg("Indexing pass failed")
			}
		case <-ctx.Done():
			ix.logger.Info().Msg("Chain indexer stopped")
			return
		}
	}
}

// Wait blocks until the run loop has exited.
func (ix *Indexer) Wait() {
	ix.wg.Wait()
}

// process indexes one window of confirmed blocks.
func (ix *Indexer) process(ctx context.Context) error {
	head, err := ix.client.BlockNumber(ctx)
	if err != nil {
		return err
	}
	if head < ix.confirms {
		return nil
	}
	safe := head - ix.confirms

	last, err := ix.cursorRepo.LastProcessedBlock(ctx)
	if err != nil {
		return err
	}
	if last >= safe {
		return nil
	}

	from := last + 1
	to := safe
	if to-from > maxLogWindow {
		to = from + maxLogWindow
	}

	logs, err := ix.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Topics: [][]common.Hash{{
			proposalSubmittedTopic,
			auctionLaunchedTopic,
			proposalRejectedTopic,
			bidTopic,
			finalizedTopic,
		}},
	})
	if err != nil {
		return err
	}

	for _, logEntry := range logs {
		ix.dispatch(ctx, logEntry)
	}

	return ix.cursorRepo.SetLastProcessedBlock(ctx, to)
}

func (ix *Indexer) dispatch(ctx context.Context, logEntry types.Log) {
	if len(logEntry.Topics) == 0 {
		return
	}

	switch logEntry.Topics[0] {
	case proposalSubmittedTopic:
		if logEntry.Address == ix.factory {
			ix.handleProposalSubmitted(ctx, logEntry)
		}
	case auctionLaunchedTopic:
		if logEntry.Address == ix.factory {
			ix.handleAuctionLaunched(ctx, logEntry)
		}
	case proposalRejectedTopic:
		if logEntry.Address == ix.factory {
			ix.handleProposalRejected(ctx, logEntry)
		}
	case bidTopic:
		ix.handleBid(ctx, logEntry)
	case finalizedTopic:
		ix.handleFinalized(ctx, logEntry)
	}
}

func (ix *Indexer) handleProposalSubmitted(ctx context.Context, logEntry types.Log) {
	if len(logEntry.Topics) < 3 {
		return
	}
	proposalID := logEntry.Topics[1].Big().Uint64()

	// Skip proposals the relay already recorded.
	if _, err := ix.proposalRepo.GetByID(ctx, proposalID); err == nil {
		return
	}

	unpacked, err := factoryABI.Unpack("ProposalSubmitted", logEntry.Data)
	if err != nil {
		ix.logger.Error().Err(err).Uint64("proposal_id", proposalID).Msg("Failed to unpack ProposalSubmitted")
		return
	}

	metadataURI, _ := unpacked[0].(string)
	startingBid, _ := unpacked[1].(*big.Int)
	duration, _ := unpacked[2].(*big.Int)
	if startingBid == nil || duration == nil {
		return
	}

	now := time.Now()
	p := &proposal.Proposal{
		ID:           proposalID,
		Proposer:     topicToAddress(logEntry.Topics[2]),
		MetadataURI:  metadataURI,
		StartingBid:  decimal.NewFromBigInt(startingBid, 0),
		Duration:     time.Duration(duration.Int64()) * time.Second,
		Status:       proposal.StatusPending,
		SubmitTxHash: logEntry.TxHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := ix.proposalRepo.Create(ctx, p); err != nil {
		ix.logger.Error().Err(err).Uint64("proposal_id", proposalID).Msg("Failed to reconcile submitted proposal")
		return
	}

	ix.logger.Info().
		Uint64("proposal_id", proposalID).
		Str("proposer", p.Proposer.Hex()).
		Msg("Reconciled proposal from chain")
}

func (ix *Indexer) handleAuctionLaunched(ctx context.Context, logEntry types.Log) {
	if len(logEntry.Topics) < 3 {
		return
	}
	proposalID := logEntry.Topics[1].Big().Uint64()
	auctionAddr := topicToAddress(logEntry.Topics[2])

	p, err := ix.proposalRepo.GetByID(ctx, proposalID)
	if err != nil {
		ix.logger.Warn().Err(err).Uint64("proposal_id", proposalID).Msg("AuctionLaunched for unknown proposal")
		return
	}

	unpacked, err := factoryABI.Unpack("AuctionLaunched", logEntry.Data)
	if err != nil {
		ix.logger.Error().Err(err).Uint64("proposal_id", proposalID).Msg("Failed to unpack AuctionLaunched")
		return
	}
	reviewer, _ := unpacked[0].(common.Address)

	if p.CanReview() {
		if err := p.Approve(auctionAddr, reviewer); err == nil {
			if err := ix.proposalRepo.Update(ctx, p); err != nil {
				ix.logger.Error().Err(err).Uint64("proposal_id", proposalID).Msg("Failed to mark proposal live")
			}
		}
	}

	// Only insert the auction row if the review path did not already.
	if _, err := ix.auctionRepo.GetByAddress(ctx, auctionAddr); err == nil {
		return
	}

	state, err := ix.gateway.AuctionState(ctx, auctionAddr)
	if err != nil {
		ix.logger.Error().Err(err).Str("auction", auctionAddr.Hex()).Msg("Failed to read launched auction state")
		return
	}

	now := time.Now()
	a := &auction.Auction{
		Address:      auctionAddr,
		ProposalID:   proposalID,
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

	if err := ix.auctionRepo.Create(ctx, a); err != nil {
		ix.logger.Error().Err(err).Str("auction", auctionAddr.Hex()).Msg("Failed to reconcile launched auction")
		return
	}

	if ix.scheduler != nil {
		if err := ix.scheduler.ScheduleSettlement(auctionAddr, a.EndTime); err != nil {
			ix.logger.Error().Err(err).Str("auction", auctionAddr.Hex()).Msg("Failed to schedule reconciled auction")
		}
	}

	ix.publish(ctx, auctionAddr, outbound.Event{
		Type:           outbound.EventTypeAuctionLaunched,
		AuctionAddress: auctionAddr,
		Data: map[string]interface{}{
			"proposal_id": proposalID,
			"end_time":    a.EndTime.Unix(),
		},
	})

	ix.logger.Info().
		Uint64("proposal_id", proposalID).
		Str("auction", auctionAddr.Hex()).
		Msg("Reconciled launched auction from chain")
}

func (ix *Indexer) handleProposalRejected(ctx context.Context, logEntry types.Log) {
	if len(logEntry.Topics) < 2 {
		return
	}
	proposalID := logEntry.Topics[1].Big().Uint64()

	p, err := ix.proposalRepo.GetByID(ctx, proposalID)
	if err != nil || !p.CanReview() {
		return
	}

	unpacked, err := factoryABI.Unpack("ProposalRejected", logEntry.Data)
	if err != nil {
		ix.logger.Error().Err(err).Uint64("proposal_id", proposalID).Msg("Failed to unpack ProposalRejected")
		return
	}
	reviewer, _ := unpacked[0].(common.Address)

	if err := p.Reject(reviewer); err != nil {
		return
	}
	if err := ix.proposalRepo.Update(ctx, p); err != nil {
		ix.logger.Error().Err(err).Uint64("proposal_id", proposalID).Msg("Failed to mark proposal rejected")
	}
}

func (ix *Indexer) handleBid(ctx context.Context, logEntry types.Log) {
	if len(logEntry.Topics) < 2 {
		return
	}

	// Bid events only matter for auctions the factory launched.
	a, err := ix.auctionRepo.GetByAddress(ctx, logEntry.Address)
	if err != nil {
		return
	}

	// The relay path may already have recorded this bid.
	if existing, err := ix.bidRepo.GetByTxHash(ctx, logEntry.TxHash); err == nil && existing.IsConfirmed() {
		return
	}

	unpacked, err := auctionABI.Unpack("Bid", logEntry.Data)
	if err != nil {
		ix.logger.Error().Err(err).Str("auction", logEntry.Address.Hex()).Msg("Failed to unpack Bid")
		return
	}
	amount, _ := unpacked[0].(*big.Int)
	if amount == nil {
		return
	}

	now := time.Now()
	b := &bid.Bid{
		ID:             uuid.New(),
		AuctionAddress: a.Address,
		Bidder:         topicToAddress(logEntry.Topics[1]),
		Amount:         decimal.NewFromBigInt(amount, 0),
		TxHash:         logEntry.TxHash,
		BlockNumber:    logEntry.BlockNumber,
		Status:         bid.StatusConfirmed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := ix.bidRepo.RecordBidWithOCC(ctx, b, a.HighestBid); err != nil {
		if err == shared.ErrBidBelowHighest {
			// Stale relative to a bid indexed moments earlier.
			ix.logger.Debug().Str("tx_hash", b.TxHash.Hex()).Msg("Skipping superseded bid event")
			return
		}
		ix.logger.Error().Err(err).Str("tx_hash", b.TxHash.Hex()).Msg("Failed to record indexed bid")
		return
	}

	ix.publish(ctx, a.Address, outbound.Event{
		Type:           outbound.EventTypeBidPlaced,
		AuctionAddress: a.Address,
		Data: map[string]interface{}{
			"bid_id":  b.ID,
			"bidder":  b.Bidder.Hex(),
			"amount":  b.Amount.String(),
			"tx_hash": b.TxHash.Hex(),
		},
	})

	ix.logger.Info().
		Str("auction", a.Address.Hex()).
		Str("bidder", b.Bidder.Hex()).
		Str("amount", b.Amount.String()).
		Msg("Indexed bid from chain")
}

func (ix *Indexer) handleFinalized(ctx context.Context, logEntry types.Log) {
	a, err := ix.auctionRepo.GetByAddress(ctx, logEntry.Address)
	if err != nil || a.IsFinished() {
		return
	}

	a.Finalize(logEntry.TxHash)
	if err := ix.auctionRepo.Update(ctx, a); err != nil {
		ix.logger.Error().Err(err).Str("auction", a.Address.Hex()).Msg("Failed to mark auction finished")
		return
	}

	if p, err := ix.proposalRepo.GetByID(ctx, a.ProposalID); err == nil {
		if err := p.Finish(); err == nil {
			if err := ix.proposalRepo.Update(ctx, p); err != nil {
				ix.logger.Error().Err(err).Uint64("proposal_id", p.ID).Msg("Failed to mark proposal finished")
			}
		}
	}

	eventData := map[string]interface{}{
		"auction_address": a.Address.Hex(),
		"tx_hash":         logEntry.TxHash.Hex(),
	}
	if len(logEntry.Topics) > 1 {
		eventData["winner"] = topicToAddress(logEntry.Topics[1]).Hex()
	}
	if unpacked, err := auctionABI.Unpack("Finalized", logEntry.Data); err == nil {
		if amount, ok := unpacked[0].(*big.Int); ok {
			eventData["final_price"] = decimal.NewFromBigInt(amount, 0).String()
		}
	}

	ix.publish(ctx, a.Address, outbound.Event{
		Type:           outbound.EventTypeAuctionFinished,
		AuctionAddress: a.Address,
		Data:           eventData,
	})

	ix.logger.Info().Str("auction", a.Address.Hex()).Msg("Indexed auction finalization from chain")
}

func (ix *Indexer) publish(ctx context.Context, auctionAddr common.Address, event outbound.Event) {
	if ix.broadcaster == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	if err := ix.broadcaster.Publish(ctx, auctionAddr, event); err != nil {
		ix.logger.Error().Err(err).Str("auction", auctionAddr.Hex()).Msg("Failed to broadcast indexed event")
	}
}
