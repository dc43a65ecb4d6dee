package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/outbound"
)

var testAuctionAddr = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

type fakeSettler struct {
	mu      sync.Mutex
	calls   int
	err     error
	result  *shared.SettlementResult
	started chan struct{}
	release chan struct{}
}

func (f *fakeSettler) SettleForScheduler(ctx context.Context, auctionAddr common.Address) (*shared.SettlementResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &shared.SettlementResult{AuctionAddress: auctionAddr, Status: "finished"}, nil
}

func (f *fakeSettler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []outbound.Event
	notify chan struct{}
}

func (f *fakeBroadcaster) Subscribe(ctx context.Context, auctionAddr common.Address, clientID string, eventChan chan outbound.Event) error {
	return nil
}

func (f *fakeBroadcaster) Unsubscribe(ctx context.Context, auctionAddr common.Address, clientID string) error {
	return nil
}

func (f *fakeBroadcaster) UnsubscribeAll(ctx context.Context, clientID string) error {
	return nil
}

func (f *fakeBroadcaster) Publish(ctx context.Context, auctionAddr common.Address, event outbound.Event) error {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()

	if f.notify != nil {
		f.notify <- struct{}{}
	}
	return nil
}

func (f *fakeBroadcaster) GetSubscribers(ctx context.Context, auctionAddr common.Address) ([]string, error) {
	return nil, nil
}

func (f *fakeBroadcaster) IsSubscribed(ctx context.Context, auctionAddr common.Address, clientID string) bool {
	return false
}

func (f *fakeBroadcaster) published() []outbound.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]outbound.Event(nil), f.events...)
}

func newTestScheduler(t *testing.T, settler *fakeSettler, broadcaster *fakeBroadcaster) *SettlementScheduler {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewSettlementScheduler(SettlementSchedulerParams{
		RedisClient:    client,
		AuctionService: settler,
		Broadcaster:    broadcaster,
		Logger:         zerolog.Nop(),
	})
}

func (s *SettlementScheduler) scheduledCount(t *testing.T) int64 {
	t.Helper()

	count, err := s.redis.ZCard(context.Background(), settlementKey).Result()
	require.NoError(t, err)
	return count
}

func TestTransientFailureKeepsAuctionScheduled(t *testing.T) {
	settler := &fakeSettler{err: shared.ErrChainUnavailable}
	s := newTestScheduler(t, settler, &fakeBroadcaster{})

	require.NoError(t, s.ScheduleSettlement(testAuctionAddr, time.Now().Add(-time.Minute)))

	s.settleAuction(testAuctionAddr)

	// The entry survives so the next tick retries.
	assert.Equal(t, int64(1), s.scheduledCount(t))

	// The failed attempt is no longer in flight, so a retry runs.
	s.settleAuction(testAuctionAddr)
	assert.Equal(t, 2, settler.callCount())
}

func TestAlreadyFinishedRemovesAuctionFromSchedule(t *testing.T) {
	settler := &fakeSettler{err: shared.ErrAuctionAlreadyFinished}
	s := newTestScheduler(t, settler, &fakeBroadcaster{})

	require.NoError(t, s.ScheduleSettlement(testAuctionAddr, time.Now().Add(-time.Minute)))

	s.settleAuction(testAuctionAddr)

	assert.Equal(t, int64(0), s.scheduledCount(t))
}

func TestSuccessfulSettlementRemovesScheduleAndBroadcasts(t *testing.T) {
	winner := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	settler := &fakeSettler{result: &shared.SettlementResult{
		AuctionAddress: testAuctionAddr,
		Winner:         &winner,
		Status:         "finished",
	}}
	broadcaster := &fakeBroadcaster{}
	s := newTestScheduler(t, settler, broadcaster)

	require.NoError(t, s.ScheduleSettlement(testAuctionAddr, time.Now().Add(-time.Minute)))

	s.settleAuction(testAuctionAddr)

	assert.Equal(t, int64(0), s.scheduledCount(t))

	events := broadcaster.published()
	require.Len(t, events, 1)
	assert.Equal(t, outbound.EventTypeAuctionFinished, events[0].Type)
	assert.Equal(t, winner.Hex(), events[0].Data["winner"])
}

func TestDueAuctionNotRespawnedWhileSettling(t *testing.T) {
	settler := &fakeSettler{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	broadcaster := &fakeBroadcaster{notify: make(chan struct{}, 1)}
	s := newTestScheduler(t, settler, broadcaster)

	require.NoError(t, s.ScheduleSettlement(testAuctionAddr, time.Now().Add(-time.Minute)))

	s.checkDueAuctions()
	<-settler.started

	// Settlement is still waiting on the chain; the next tick must not
	// spawn a second attempt for the same auction.
	s.checkDueAuctions()

	close(settler.release)
	<-broadcaster.notify

	assert.Equal(t, 1, settler.callCount())
	assert.Equal(t, int64(0), s.scheduledCount(t))
}
