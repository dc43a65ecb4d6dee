package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
)

type MessageType string

const (
	// Client to Server message types
	MessageTypeSubscribe    MessageType = "subscribe"
	MessageTypeUnsubscribe  MessageType = "unsubscribe"
	MessageTypeGetAuction   MessageType = "get_auction"
	MessageTypeGetBids      MessageType = "get_bids"
	MessageTypeListAuctions MessageType = "list_auctions"
	MessageTypePing         MessageType = "ping"

	// Server to Client message types
	MessageTypeBidPlaced        MessageType = "bid_placed"
	MessageTypeProposalReviewed MessageType = "proposal_reviewed"
	MessageTypeAuctionLaunched  MessageType = "auction_launched"
	MessageTypeAuctionFinished  MessageType = "auction_finished"
	MessageTypeAuctionUpdate    MessageType = "auction_update"
	MessageTypeBidHistory       MessageType = "bid_history"
	MessageTypeError            MessageType = "error"
	MessageTypePong             MessageType = "pong"
)

type ClientMessage struct {
	Type           MessageType            `json:"type"`
	AuctionAddress string                 `json:"auction_address,omitempty"`
	Data           map[string]interface{} `json:"data,omitempty"`
	Timestamp      int64                  `json:"timestamp"`
}

// ServerMessage represents a message sent from server to client
type ServerMessage struct {
	Type           MessageType            `json:"type"`
	AuctionAddress string                 `json:"auction_address,omitempty"`
	Data           map[string]interface{} `json:"data,omitempty"`
	Error          *string                `json:"error,omitempty"`
	Timestamp      int64                  `json:"timestamp"`
}

func NewServerMessage(msgType MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now().Unix(),
	}
}

func NewErrorMessage(err string, auctionAddr string) *ServerMessage {
	return &ServerMessage{
		Type:           MessageTypeError,
		AuctionAddress: auctionAddr,
		Error:          &err,
		Timestamp:      time.Now().Unix(),
	}
}

// auctionAddress validates and parses the auction address field.
func (m *ClientMessage) auctionAddress() (common.Address, error) {
	if m.AuctionAddress == "" {
		return common.Address{}, shared.ErrAuctionAddrRequired
	}
	if !common.IsHexAddress(m.AuctionAddress) {
		return common.Address{}, shared.ErrInvalidAddress
	}
	return common.HexToAddress(m.AuctionAddress), nil
}

// ParseClientMessage parses a JSON message from client
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}

	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}

	return &msg, nil
}

// Validate validates a client message
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe, MessageTypeGetAuction, MessageTypeGetBids:
		if _, err := m.auctionAddress(); err != nil {
			return err
		}
	case MessageTypeListAuctions:

	case MessageTypePing:

	default:
		return shared.ErrUnknownMessageType
	}

	return nil
}
