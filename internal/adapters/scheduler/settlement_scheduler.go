package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/outbound"
)

const settlementKey = "auction:settlements"

// SettlementService settles an auction whose end time has passed.
type SettlementService interface {
	SettleForScheduler(ctx context.Context, auctionAddr common.Address) (*shared.SettlementResult, error)
}

// SettlementScheduler finalizes auctions at their end time. Auction
// addresses are kept in a Redis sorted set scored by the unix end time;
// a poll loop settles whatever is due.
type SettlementScheduler struct {
	redis          *redis.Client
	auctionService SettlementService
	broadcaster    outbound.Broadcaster
	inFlight       map[string]bool // auction member -> settlement in progress
	inFlightMu     sync.Mutex
	logger         zerolog.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

type SettlementSchedulerParams struct {
	RedisClient    *redis.Client
	AuctionService SettlementService
	Broadcaster    outbound.Broadcaster
	Logger         zerolog.Logger
}

func NewSettlementScheduler(params SettlementSchedulerParams) *SettlementScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &SettlementScheduler{
		redis:          params.RedisClient,
		auctionService: params.AuctionService,
		broadcaster:    params.Broadcaster,
		inFlight:       make(map[string]bool),
		logger:         params.Logger.With().Str("component", "settlement_scheduler").Logger(),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// ScheduleSettlement adds an auction to the settlement schedule
func (s *SettlementScheduler) ScheduleSettlement(auctionAddr common.Address, endTime time.Time) error {
	score := float64(endTime.Unix())

	err := s.redis.ZAdd(s.ctx, settlementKey, redis.Z{
		Score:  score,
		Member: strings.ToLower(auctionAddr.Hex()),
	}).Err()

	if err != nil {
		s.logger.Error().Err(err).Str("auction", auctionAddr.Hex()).Msg("Failed to schedule settlement")
		return fmt.Errorf("failed to schedule settlement: %w", err)
	}

	s.logger.Info().
		Str("auction", auctionAddr.Hex()).
		Time("end_time", endTime).
		Msg("Auction scheduled for settlement")

	return nil
}

// Start begins the scheduler loop
func (s *SettlementScheduler) Start() {
	s.logger.Info().Msg("Starting settlement scheduler")

	s.wg.Add(1)
	go s.schedulerLoop()
}

// Stop gracefully stops the scheduler
func (s *SettlementScheduler) Stop() {
	s.logger.Info().Msg("Stopping settlement scheduler")
	s.cancel()
	s.wg.Wait()
}

// schedulerLoop runs the main scheduling loop
func (s *SettlementScheduler) schedulerLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.checkDueAuctions()
		case <-s.ctx.Done():
			s.logger.Info().Msg("Scheduler loop stopped")
			return
		}
	}
}

// checkDueAuctions finds and settles auctions past their end time
func (s *SettlementScheduler) checkDueAuctions() {
	now := time.Now().Unix()

	dueAuctions, err := s.redis.ZRangeByScore(s.ctx, settlementKey, &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(now, 10),
		Count: 10, // Process max 10 at a time
	}).Result()

	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to get due auctions")
		return
	}

	if len(dueAuctions) > 0 {
		s.logger.Debug().Int("count", len(dueAuctions)).Msg("Found auctions due for settlement")
	}

	for _, addrStr := range dueAuctions {
		if !common.IsHexAddress(addrStr) {
			s.logger.Error().Str("auction", addrStr).Msg("Invalid auction address in schedule")
			s.redis.ZRem(s.ctx, settlementKey, addrStr)
			continue
		}

		// Settlement waits for the chain receipt, which outlasts the
		// tick. Skip auctions that already have one in progress.
		if !s.markInFlight(addrStr) {
			continue
		}

		go s.settleAuction(common.HexToAddress(addrStr))
	}
}

func (s *SettlementScheduler) markInFlight(member string) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()

	if s.inFlight[member] {
		return false
	}
	s.inFlight[member] = true
	return true
}

func (s *SettlementScheduler) clearInFlight(member string) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	delete(s.inFlight, member)
}

// settleAuction finalizes one due auction. The schedule entry is only
// removed once settlement succeeded or can never succeed; transient
// failures leave it in place so the next tick retries.
func (s *SettlementScheduler) settleAuction(auctionAddr common.Address) {
	member := strings.ToLower(auctionAddr.Hex())
	defer s.clearInFlight(member)

	s.logger.Info().Str("auction", auctionAddr.Hex()).Msg("Processing auction settlement")

	result, err := s.auctionService.SettleForScheduler(s.ctx, auctionAddr)
	if err != nil {
		if errors.Is(err, shared.ErrAuctionAlreadyFinished) || errors.Is(err, shared.ErrAuctionNotFound) {
			s.redis.ZRem(s.ctx, settlementKey, member)
			s.logger.Info().Err(err).Str("auction", auctionAddr.Hex()).Msg("Auction no longer needs settlement, removed from schedule")
			return
		}

		s.logger.Error().Err(err).Str("auction", auctionAddr.Hex()).Msg("Failed to settle auction, will retry on next tick")
		return
	}

	s.redis.ZRem(s.ctx, settlementKey, member)

	eventData := map[string]interface{}{
		"auction_address": auctionAddr.Hex(),
		"status":          result.Status,
		"tx_hash":         result.TxHash.Hex(),
	}
	if result.Winner != nil {
		eventData["winner"] = result.Winner.Hex()
	}
	if result.FinalPrice != nil {
		eventData["final_price"] = result.FinalPrice.String()
	}

	event := outbound.Event{
		Type:           outbound.EventTypeAuctionFinished,
		AuctionAddress: auctionAddr,
		Data:           eventData,
		Timestamp:      time.Now().Unix(),
	}

	if err := s.broadcaster.Publish(s.ctx, auctionAddr, event); err != nil {
		s.logger.Error().Err(err).Str("auction", auctionAddr.Hex()).Msg("Failed to broadcast settlement event")
	}

	logger := s.logger.Info().Str("auction", auctionAddr.Hex())

	if result.Winner != nil {
		logger = logger.Str("winner", result.Winner.Hex())
	}
	if result.FinalPrice != nil {
		logger = logger.Str("final_price", result.FinalPrice.String())
	}

	logger.Msg("Auction settled successfully")
}
