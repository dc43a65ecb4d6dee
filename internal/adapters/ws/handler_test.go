package ws

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/bid"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/inbound"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/outbound"
)

var testAuctionAddr = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

type stubBidService struct {
	bids []*bid.Bid
	err  error
}

func (s *stubBidService) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*bid.Bid, error) {
	return nil, nil
}

func (s *stubBidService) GetBids(ctx context.Context, addr common.Address) ([]*bid.Bid, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bids, nil
}

func (s *stubBidService) GetHighestBid(ctx context.Context, addr common.Address) (*bid.Bid, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.bids) == 0 {
		return nil, shared.ErrNoBidsFound
	}
	return s.bids[0], nil
}

func newTestWsClient() *WsClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &WsClient{
		id:       "client-test",
		wallet:   common.HexToAddress("0x1111111111111111111111111111111111111111"),
		sendChan: make(chan *ServerMessage, 100),
		ctx:      ctx,
		cancel:   cancel,
		logger:   zerolog.Nop(),
	}
}

func TestListenerStopsWhenEventChannelCloses(t *testing.T) {
	handler := NewHandler(WsHandlerParams{Logger: zerolog.Nop()})
	client := newTestWsClient()
	defer client.cancel()

	eventChan := handler.createEventChannel(client.id)

	done := make(chan struct{})
	go func() {
		handler.listenForClientEvents(client)
		close(done)
	}()

	eventChan <- outbound.Event{Type: outbound.EventTypeBidPlaced, AuctionAddress: testAuctionAddr}
	msg := <-client.sendChan
	assert.Equal(t, MessageTypeBidPlaced, msg.Type)

	handler.removeEventChannel(client.id)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("event listener kept running after channel close")
	}

	// A closed channel must not flood the client with zero-value events.
	assert.Empty(t, client.sendChan)
}

func TestRemoveEventChannelTwice(t *testing.T) {
	handler := NewHandler(WsHandlerParams{Logger: zerolog.Nop()})
	handler.createEventChannel("client-test")

	require.NotPanics(t, func() {
		handler.removeEventChannel("client-test")
		handler.removeEventChannel("client-test")
	})
}

func TestHandleGetBids(t *testing.T) {
	bidder := common.HexToAddress("0x2222222222222222222222222222222222222222")
	bids := &stubBidService{bids: []*bid.Bid{
		{
			AuctionAddress: testAuctionAddr,
			Bidder:         bidder,
			Amount:         decimal.NewFromInt(700),
			TxHash:         common.HexToHash("0x01"),
			Status:         bid.StatusConfirmed,
		},
	}}
	handler := NewHandler(WsHandlerParams{BidService: bids, Logger: zerolog.Nop()})
	client := newTestWsClient()
	defer client.cancel()

	err := handler.HandleClientMessage(client, &ClientMessage{
		Type:           MessageTypeGetBids,
		AuctionAddress: testAuctionAddr.Hex(),
	})
	require.NoError(t, err)

	msg := <-client.sendChan
	assert.Equal(t, MessageTypeBidHistory, msg.Type)
	assert.Equal(t, testAuctionAddr.Hex(), msg.AuctionAddress)
	assert.Equal(t, 1, msg.Data["count"])

	history, ok := msg.Data["bids"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, history, 1)
	assert.Equal(t, bidder.Hex(), history[0]["bidder"])
	assert.Equal(t, "700", history[0]["amount"])
}

func TestHandleGetBidsRequiresAddress(t *testing.T) {
	handler := NewHandler(WsHandlerParams{BidService: &stubBidService{}, Logger: zerolog.Nop()})
	client := newTestWsClient()
	defer client.cancel()

	err := handler.HandleClientMessage(client, &ClientMessage{Type: MessageTypeGetBids})
	assert.ErrorIs(t, err, shared.ErrAuctionAddrRequired)
}

func TestHandleGetBidsServiceError(t *testing.T) {
	bids := &stubBidService{err: shared.ErrAuctionNotFound}
	handler := NewHandler(WsHandlerParams{BidService: bids, Logger: zerolog.Nop()})
	client := newTestWsClient()
	defer client.cancel()

	err := handler.HandleClientMessage(client, &ClientMessage{
		Type:           MessageTypeGetBids,
		AuctionAddress: testAuctionAddr.Hex(),
	})
	require.NoError(t, err)

	msg := <-client.sendChan
	assert.Equal(t, MessageTypeError, msg.Type)
	require.NotNil(t, msg.Error)
}
