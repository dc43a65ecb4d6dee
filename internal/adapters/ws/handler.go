package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/inbound"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/outbound"
)

// WsHandler manages WebSocket connections and message routing
type WsHandler struct {
	clients        map[string]*WsClient // clientID -> Client
	clientsMu      sync.RWMutex
	eventChannels  map[string]chan outbound.Event // clientID -> local event channel
	channelsMu     sync.RWMutex
	upgrader       websocket.Upgrader
	auctionService inbound.AuctionService
	bidService     inbound.BidService
	broadcaster    outbound.Broadcaster
	logger         zerolog.Logger
}
type WsHandlerParams struct {
	Upgrader       websocket.Upgrader
	AuctionService inbound.AuctionService
	BidService     inbound.BidService
	Broadcaster    outbound.Broadcaster
	Logger         zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params WsHandlerParams) *WsHandler {
	return &WsHandler{
		clients:        make(map[string]*WsClient),
		eventChannels:  make(map[string]chan outbound.Event),
		upgrader:       params.Upgrader,
		auctionService: params.AuctionService,
		bidService:     params.BidService,
		broadcaster:    params.Broadcaster,
		logger:         params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket handles WebSocket connection upgrades. The connecting
// wallet address arrives as a query parameter.
func (handler *WsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	walletStr := r.URL.Query().Get("address")
	if walletStr == "" {
		http.Error(w, "address is required", http.StatusBadRequest)
		return
	}
	if !common.IsHexAddress(walletStr) {
		http.Error(w, "invalid address format", http.StatusBadRequest)
		return
	}
	wallet := common.HexToAddress(walletStr)

	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		handler.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(WsClientParams{
		Wallet:  wallet,
		Conn:    conn,
		Handler: handler,
		Logger:  handler.logger,
	})

	handler.registerClient(client)
	handler.createEventChannel(client.id)
	client.Start()

	// Start listening for broadcast events for this client
	go handler.listenForClientEvents(client)

	// Wait for client to disconnect
	go func() {
		<-client.ctx.Done()
		handler.unregisterClient(client)
	}()

	handler.logger.Info().Str("client_id", client.id).Str("wallet", client.wallet.Hex()).Msg("WebSocket client connected")
}

// createEventChannel creates a local event channel for a client
func (handler *WsHandler) createEventChannel(clientID string) chan outbound.Event {
	handler.channelsMu.Lock()
	defer handler.channelsMu.Unlock()

	if eventChan, exists := handler.eventChannels[clientID]; exists {
		return eventChan
	}

	eventChan := make(chan outbound.Event, 100)
	handler.eventChannels[clientID] = eventChan

	handler.logger.Debug().Str("client_id", clientID).Msg("Created local event channel for client")
	return eventChan
}

func (handler *WsHandler) getEventChannel(clientID string) chan outbound.Event {
	handler.channelsMu.RLock()
	defer handler.channelsMu.RUnlock()

	return handler.eventChannels[clientID]
}

func (handler *WsHandler) removeEventChannel(clientID string) {
	handler.channelsMu.Lock()
	defer handler.channelsMu.Unlock()

	if eventChan, exists := handler.eventChannels[clientID]; exists {
		close(eventChan)
		delete(handler.eventChannels, clientID)
		handler.logger.Debug().Str("client_id", clientID).Msg("Removed local event channel for client")
	}
}

func (handler *WsHandler) registerClient(client *WsClient) {
	handler.clientsMu.Lock()
	defer handler.clientsMu.Unlock()
	handler.clients[client.id] = client
	handler.logger.Debug().Str("client_id", client.id).Int("total_clients", len(handler.clients)).Msg("Client registered")
}

func (handler *WsHandler) unregisterClient(client *WsClient) {
	handler.clientsMu.Lock()
	defer handler.clientsMu.Unlock()

	delete(handler.clients, client.id)

	// Drop the broadcaster's references first so nothing forwards into
	// the event channel once it is closed below.
	if handler.broadcaster != nil {
		if err := handler.broadcaster.UnsubscribeAll(context.Background(), client.id); err != nil {
			handler.logger.Error().Err(err).Str("client_id", client.id).Msg("Failed to remove client subscriptions")
		}
	}

	client.Stop()
	handler.removeEventChannel(client.id)

	handler.logger.Info().Str("client_id", client.id).Str("wallet", client.wallet.Hex()).Int("total_clients", len(handler.clients)).Msg("WebSocket client disconnected")
}

// listenForClientEvents forwards broadcast events to the client socket
func (handler *WsHandler) listenForClientEvents(client *WsClient) {
	eventChan := handler.getEventChannel(client.id)
	if eventChan == nil {
		handler.logger.Error().Str("client_id", client.id).Msg("No event channel found for client")
		return
	}

	handler.logger.Debug().Str("client_id", client.id).Msg("Event listener started for client")

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				handler.logger.Debug().Str("client_id", client.id).Msg("Event channel closed, stopping event listener")
				return
			}

			wsMessage := handler.convertEventToMessage(event)

			if err := client.Send(wsMessage); err != nil {
				handler.logger.Error().
					Err(err).Str("client_id", client.id).Msg("Failed to send event to WebSocket client")
			} else {
				handler.logger.Debug().Str("client_id", client.id).Str("event_type", string(event.Type)).
					Msg("Sent event to WebSocket client")
			}

		case <-client.ctx.Done():
			handler.logger.Debug().Str("client_id", client.id).Msg("Client disconnected, stopping event listener")
			return
		}
	}
}

func (handler *WsHandler) HandleClientMessage(client *WsClient, msg *ClientMessage) error {
	switch msg.Type {
	case MessageTypeSubscribe:
		return handler.handleSubscribe(client, msg)

	case MessageTypeUnsubscribe:
		return handler.handleUnsubscribe(client, msg)

	case MessageTypeGetAuction:
		return handler.handleGetAuction(client, msg)

	case MessageTypeGetBids:
		return handler.handleGetBids(client, msg)

	case MessageTypeListAuctions:
		return handler.handleListAuctions(client, msg)

	default:
		handler.logger.Warn().Str("client_id", client.id).Str("message_type", string(msg.Type)).Msg("Unknown message type from client")
		return shared.ErrUnknownMessageType
	}
}

func (handler *WsHandler) convertEventToMessage(event outbound.Event) *ServerMessage {
	switch event.Type {
	case outbound.EventTypeBidPlaced:
		return &ServerMessage{
			Type:           MessageTypeBidPlaced,
			AuctionAddress: event.AuctionAddress.Hex(),
			Data:           event.Data,
			Timestamp:      event.Timestamp,
		}
	case outbound.EventTypeProposalReviewed:
		return &ServerMessage{
			Type:           MessageTypeProposalReviewed,
			AuctionAddress: event.AuctionAddress.Hex(),
			Data:           event.Data,
			Timestamp:      event.Timestamp,
		}
	case outbound.EventTypeAuctionLaunched:
		return &ServerMessage{
			Type:           MessageTypeAuctionLaunched,
			AuctionAddress: event.AuctionAddress.Hex(),
			Data:           event.Data,
			Timestamp:      event.Timestamp,
		}
	case outbound.EventTypeAuctionFinished:
		return &ServerMessage{
			Type:           MessageTypeAuctionFinished,
			AuctionAddress: event.AuctionAddress.Hex(),
			Data:           event.Data,
			Timestamp:      event.Timestamp,
		}
	default:
		return &ServerMessage{
			Type:           MessageTypeAuctionUpdate,
			AuctionAddress: event.AuctionAddress.Hex(),
			Data:           event.Data,
			Timestamp:      event.Timestamp,
		}
	}
}

// GetConnectedClients returns the number of connected clients
func (handler *WsHandler) GetConnectedClients() int {
	handler.clientsMu.RLock()
	defer handler.clientsMu.RUnlock()
	return len(handler.clients)
}

func (handler *WsHandler) handleSubscribe(client *WsClient, msg *ClientMessage) error {
	auctionAddr, err := msg.auctionAddress()
	if err != nil {
		return err
	}

	ctx := context.Background()

	eventChan := handler.getEventChannel(client.id)
	if eventChan == nil {
		handler.logger.Error().Str("client_id", client.id).Msg("No event channel found for client")
		return shared.ErrClientEventChannelNotFound
	}

	if err := handler.broadcaster.Subscribe(ctx, auctionAddr, client.id, eventChan); err != nil {
		handler.logger.Error().Err(err).Str("client_id", client.id).Str("auction", auctionAddr.Hex()).Msg("Failed to subscribe to auction")
		return err
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionAddress = auctionAddr.Hex()
	response.Data["status"] = "subscribed"

	handler.logger.Info().Str("client_id", client.id).Str("auction", auctionAddr.Hex()).Msg("Client subscribed to auction")
	return client.Send(response)
}

// handleUnsubscribe handles unsubscription from auction events
func (handler *WsHandler) handleUnsubscribe(client *WsClient, msg *ClientMessage) error {
	auctionAddr, err := msg.auctionAddress()
	if err != nil {
		return err
	}

	ctx := context.Background()

	if err := handler.broadcaster.Unsubscribe(ctx, auctionAddr, client.id); err != nil {
		return err
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionAddress = auctionAddr.Hex()
	response.Data["status"] = "unsubscribed"

	handler.logger.Info().Str("client_id", client.id).Str("auction", auctionAddr.Hex()).Msg("Client unsubscribed from auction")
	return client.Send(response)
}

// handleGetAuction handles getting auction details
func (handler *WsHandler) handleGetAuction(client *WsClient, msg *ClientMessage) error {
	auctionAddr, err := msg.auctionAddress()
	if err != nil {
		return err
	}

	ctx := context.Background()

	detail, err := handler.auctionService.GetAuction(ctx, auctionAddr)
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), auctionAddr.Hex())
		return client.Send(errorMsg)
	}

	response := handler.createAuctionResponse(detail, MessageTypeAuctionUpdate)
	return client.Send(response)
}

// handleGetBids sends the bid history for an auction, highest first
func (handler *WsHandler) handleGetBids(client *WsClient, msg *ClientMessage) error {
	auctionAddr, err := msg.auctionAddress()
	if err != nil {
		return err
	}

	ctx := context.Background()

	bids, err := handler.bidService.GetBids(ctx, auctionAddr)
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), auctionAddr.Hex())
		return client.Send(errorMsg)
	}

	history := make([]map[string]interface{}, 0, len(bids))
	for _, b := range bids {
		entry := map[string]interface{}{
			"bidder":  b.Bidder.Hex(),
			"amount":  b.Amount.String(),
			"tx_hash": b.TxHash.Hex(),
			"status":  b.Status,
		}
		history = append(history, entry)
	}

	response := NewServerMessage(MessageTypeBidHistory)
	response.AuctionAddress = auctionAddr.Hex()
	response.Data["bids"] = history
	response.Data["count"] = len(history)

	return client.Send(response)
}

// handleListAuctions handles listing auctions
func (handler *WsHandler) handleListAuctions(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	limit := 10
	if limitVal, ok := msg.Data["limit"].(float64); ok && limitVal > 0 {
		limit = int(limitVal)
	}

	offset := 0
	if offsetVal, ok := msg.Data["offset"].(float64); ok && offsetVal > 0 {
		offset = int(offsetVal)
	}

	auctionRequest := inbound.ListAuctionsRequest{
		Page:     offset/limit + 1, // Convert offset to page
		PageSize: limit,
		Status:   nil,
	}

	auctions, err := handler.auctionService.ListAuctions(ctx, auctionRequest)
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), "")
		return client.Send(errorMsg)
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.Data["auctions"] = auctions
	response.Data["count"] = len(auctions)

	return client.Send(response)
}

func (handler *WsHandler) createAuctionResponse(detail *inbound.AuctionDetail, msgType MessageType) *ServerMessage {
	a := detail.Auction

	response := NewServerMessage(msgType)
	response.AuctionAddress = a.Address.Hex()
	response.Data["proposal_id"] = a.ProposalID
	response.Data["seller"] = a.Seller.Hex()
	response.Data["starting_bid"] = a.StartingBid.String()
	response.Data["highest_bid"] = a.HighestBid.String()
	if a.HighestBidder != nil {
		response.Data["highest_bidder"] = a.HighestBidder.Hex()
	}
	response.Data["end_time"] = a.EndTime.Format(time.RFC3339)
	response.Data["status"] = a.Status
	if detail.Metadata != nil {
		response.Data["name"] = detail.Metadata.Name
	}

	return response
}
