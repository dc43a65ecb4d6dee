package broadcaster

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bykamri/dev-elaction-sub000/internal/ports/outbound"
)

var testAuctionAddr = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

func newTestBroadcaster(t *testing.T) *RedisBroadcaster {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewBroadcaster(RedisBroadcasterParams{
		RedisClient: client,
		Logger:      zerolog.Nop(),
	})
}

// The event channel belongs to the connection that registered it. When
// the last subscription goes away the broadcaster drops its references
// but must leave the channel open, so the connection teardown can close
// it exactly once.
func TestUnsubscribeLeavesEventChannelOpen(t *testing.T) {
	b := newTestBroadcaster(t)
	ctx := context.Background()
	eventChan := make(chan outbound.Event, 100)

	require.NoError(t, b.Subscribe(ctx, testAuctionAddr, "client-1", eventChan))
	assert.True(t, b.IsSubscribed(ctx, testAuctionAddr, "client-1"))

	require.NoError(t, b.Unsubscribe(ctx, testAuctionAddr, "client-1"))
	assert.False(t, b.IsSubscribed(ctx, testAuctionAddr, "client-1"))

	require.NotPanics(t, func() { close(eventChan) })
}

func TestResubscribeAfterUnsubscribe(t *testing.T) {
	b := newTestBroadcaster(t)
	ctx := context.Background()
	eventChan := make(chan outbound.Event, 100)

	require.NoError(t, b.Subscribe(ctx, testAuctionAddr, "client-1", eventChan))
	require.NoError(t, b.Unsubscribe(ctx, testAuctionAddr, "client-1"))

	require.NoError(t, b.Subscribe(ctx, testAuctionAddr, "client-1", eventChan))
	assert.True(t, b.IsSubscribed(ctx, testAuctionAddr, "client-1"))

	subscribers, err := b.GetSubscribers(ctx, testAuctionAddr)
	require.NoError(t, err)
	assert.Equal(t, []string{"client-1"}, subscribers)
}

func TestUnsubscribeAllDropsClient(t *testing.T) {
	b := newTestBroadcaster(t)
	ctx := context.Background()
	other := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	eventChan := make(chan outbound.Event, 100)

	require.NoError(t, b.Subscribe(ctx, testAuctionAddr, "client-1", eventChan))
	require.NoError(t, b.Subscribe(ctx, other, "client-1", eventChan))

	require.NoError(t, b.UnsubscribeAll(ctx, "client-1"))
	assert.False(t, b.IsSubscribed(ctx, testAuctionAddr, "client-1"))
	assert.False(t, b.IsSubscribed(ctx, other, "client-1"))

	require.NotPanics(t, func() { close(eventChan) })
}

func TestCloseLeavesEventChannelsToOwners(t *testing.T) {
	b := newTestBroadcaster(t)
	ctx := context.Background()
	eventChan := make(chan outbound.Event, 100)

	require.NoError(t, b.Subscribe(ctx, testAuctionAddr, "client-1", eventChan))
	require.NoError(t, b.Close())

	require.NotPanics(t, func() { close(eventChan) })
}
