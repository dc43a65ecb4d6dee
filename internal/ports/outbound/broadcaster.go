package outbound

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// EventType represents the type of event being broadcasted
type EventType string

const (
	EventTypeProposalReviewed EventType = "proposal.reviewed"
	EventTypeAuctionLaunched  EventType = "auction.launched"
	EventTypeBidPlaced        EventType = "bid.placed"
	EventTypeAuctionFinished  EventType = "auction.finished"
	EventTypeError            EventType = "error"
)

// Event represents a broadcast event scoped to one auction contract
type Event struct {
	Type           EventType              `json:"type"`
	AuctionAddress common.Address         `json:"auction_address"`
	Data           map[string]interface{} `json:"data"`
	Timestamp      int64                  `json:"timestamp"`
}

// Broadcaster defines the interface for broadcasting auction events
type Broadcaster interface {
	// Subscribe subscribes a client to events for a specific auction.
	// Events from all of a client's subscriptions arrive on the same channel.
	Subscribe(ctx context.Context, auctionAddr common.Address, clientID string, eventChan chan Event) error

	// Unsubscribe unsubscribes a client from events for a specific auction
	Unsubscribe(ctx context.Context, auctionAddr common.Address, clientID string) error

	// UnsubscribeAll drops every subscription a client holds, typically
	// on disconnect. The client's event channel stays with the caller.
	UnsubscribeAll(ctx context.Context, clientID string) error

	// Publish publishes an event to all subscribers of an auction
	Publish(ctx context.Context, auctionAddr common.Address, event Event) error

	// GetSubscribers returns the client IDs subscribed to an auction
	GetSubscribers(ctx context.Context, auctionAddr common.Address) ([]string, error)

	// IsSubscribed checks if a client is subscribed to an auction
	IsSubscribed(ctx context.Context, auctionAddr common.Address, clientID string) bool
}
