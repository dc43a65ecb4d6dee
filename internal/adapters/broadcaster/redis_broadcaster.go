package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Bykamri/dev-elaction-sub000/internal/ports/outbound"
)

// RedisBroadcaster implements the broadcaster interface using Redis pub/sub.
// Channels are keyed by lowercased auction contract address so every
// service instance sees the same feed.
type RedisBroadcaster struct {
	client            *redis.Client
	subscribers       map[string]chan outbound.Event // clientID -> local channel, owned by the caller
	pubsubs           map[string]*redis.PubSub       // clientID -> pubsub instance
	clientsToAuctions map[string]map[string]bool     // clientID -> auction channel -> subscribed
	mu                sync.RWMutex
	ctx               context.Context
	cancel            context.CancelFunc
	logger            zerolog.Logger
}

type RedisBroadcasterParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

func NewBroadcaster(params RedisBroadcasterParams) *RedisBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	broadcaster := &RedisBroadcaster{
		client:            params.RedisClient,
		subscribers:       make(map[string]chan outbound.Event),
		pubsubs:           make(map[string]*redis.PubSub),
		clientsToAuctions: make(map[string]map[string]bool),
		ctx:               ctx,
		cancel:            cancel,
		logger:            params.Logger.With().Str("component", "redis_broadcaster").Logger(),
	}

	return broadcaster
}

func channelName(auctionAddr common.Address) string {
	return fmt.Sprintf("auction:%s", strings.ToLower(auctionAddr.Hex()))
}

// Subscribe subscribes a client to events for a specific auction
func (r *RedisBroadcaster) Subscribe(ctx context.Context, auctionAddr common.Address, clientID string, eventChan chan outbound.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	channel := channelName(auctionAddr)

	// Check if client is already subscribed to this auction
	if r.clientsToAuctions[clientID] != nil && r.clientsToAuctions[clientID][channel] {
		r.logger.Info().
			Str("client_id", clientID).
			Str("auction", auctionAddr.Hex()).
			Msg("Client already subscribed to auction")
		return nil
	}

	// Store the event channel if this is the first subscription
	if r.subscribers[clientID] == nil {
		r.subscribers[clientID] = eventChan
	}

	if r.clientsToAuctions[clientID] == nil {
		r.clientsToAuctions[clientID] = make(map[string]bool)
	}
	r.clientsToAuctions[clientID][channel] = true

	// Get or create pubsub connection for this client
	var pubsub *redis.PubSub
	if existingPubsub, exists := r.pubsubs[clientID]; exists {
		pubsub = existingPubsub
	} else {
		pubsub = r.client.Subscribe(ctx)
		r.pubsubs[clientID] = pubsub

		// Forward Redis messages to the client's local channel
		go r.listenForRedisMessages(pubsub, clientID, eventChan)
	}

	if err := pubsub.Subscribe(ctx, channel); err != nil {
		r.logger.Error().Err(err).Str("client_id", clientID).Str("auction", auctionAddr.Hex()).Msg("Failed to subscribe to Redis channel")
		return err
	}

	r.logger.Info().
		Str("client_id", clientID).
		Str("auction", auctionAddr.Hex()).
		Msg("Client subscribed to auction via Redis")
	return nil
}

// Unsubscribe unsubscribes a client from events for a specific auction
func (r *RedisBroadcaster) Unsubscribe(ctx context.Context, auctionAddr common.Address, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	channel := channelName(auctionAddr)

	if clientChannels, exists := r.clientsToAuctions[clientID]; exists {
		delete(clientChannels, channel)

		// If no more auctions, drop our references. The event channel
		// belongs to the caller and stays open for resubscription.
		if len(clientChannels) == 0 {
			delete(r.clientsToAuctions, clientID)
			delete(r.subscribers, clientID)

			if pubsub, exists := r.pubsubs[clientID]; exists {
				if err := pubsub.Close(); err != nil {
					r.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub for client")
				}
				delete(r.pubsubs, clientID)
			}
		} else {
			if pubsub, exists := r.pubsubs[clientID]; exists {
				if err := pubsub.Unsubscribe(ctx, channel); err != nil {
					r.logger.Error().Err(err).Str("client_id", clientID).Str("auction", auctionAddr.Hex()).Msg("Error unsubscribing from Redis channel")
				}
			}
		}
	}

	r.logger.Info().
		Str("client_id", clientID).
		Str("auction", auctionAddr.Hex()).
		Msg("Client unsubscribed from auction")
	return nil
}

// UnsubscribeAll drops every subscription a client holds. The event
// channel belongs to the caller and is left open.
func (r *RedisBroadcaster) UnsubscribeAll(ctx context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.clientsToAuctions, clientID)
	delete(r.subscribers, clientID)

	if pubsub, exists := r.pubsubs[clientID]; exists {
		if err := pubsub.Close(); err != nil {
			r.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub for client")
		}
		delete(r.pubsubs, clientID)
	}

	r.logger.Debug().Str("client_id", clientID).Msg("Client subscriptions removed")
	return nil
}

// Publish publishes an event to all subscribers of an auction via Redis
func (r *RedisBroadcaster) Publish(ctx context.Context, auctionAddr common.Address, event outbound.Event) error {
	channel := channelName(auctionAddr)

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := r.client.Publish(ctx, channel, eventJSON)
	if err := result.Err(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to publish to Redis")
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}

	r.logger.Debug().
		Str("event_type", string(event.Type)).
		Str("auction", auctionAddr.Hex()).
		Int64("subscriber_count", result.Val()).
		Msg("Published event to auction")

	return nil
}

func (r *RedisBroadcaster) GetSubscribers(ctx context.Context, auctionAddr common.Address) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channel := channelName(auctionAddr)

	var subscribers []string
	for clientID, channels := range r.clientsToAuctions {
		if channels[channel] {
			subscribers = append(subscribers, clientID)
		}
	}

	return subscribers, nil
}

func (r *RedisBroadcaster) GetEventChannel(clientID string) <-chan outbound.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if eventChan, exists := r.subscribers[clientID]; exists {
		return eventChan
	}

	return nil
}

// listenForRedisMessages forwards Redis messages to the local channel
func (r *RedisBroadcaster) listenForRedisMessages(pubsub *redis.PubSub, clientID string, localChan chan outbound.Event) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error().Interface("panic", err).Str("client_id", clientID).Msg("Redis message listener panic for client")
		}
	}()

	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				r.logger.Info().Str("client_id", clientID).Msg("Redis channel closed for client")
				return
			}

			var event outbound.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Error().Err(err).Str("client_id", clientID).Msg("Failed to unmarshal Redis message for client")
				continue
			}

			select {
			case localChan <- event:
			default:
				r.logger.Warn().Str("client_id", clientID).Msg("Local channel full for client, dropping event")
			}

		case <-r.ctx.Done():
			r.logger.Info().Str("client_id", clientID).Msg("Redis broadcaster context cancelled for client")
			return
		}
	}
}

func (r *RedisBroadcaster) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	for clientID := range r.subscribers {
		delete(r.subscribers, clientID)
	}

	for clientID, pubsub := range r.pubsubs {
		if err := pubsub.Close(); err != nil {
			r.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub for client")
		}
		delete(r.pubsubs, clientID)
	}

	return r.client.Close()
}

func (r *RedisBroadcaster) IsSubscribed(ctx context.Context, auctionAddr common.Address, clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clientChannels, exists := r.clientsToAuctions[clientID]
	if !exists {
		return false
	}

	return clientChannels[channelName(auctionAddr)]
}
