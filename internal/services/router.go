package services

import (
	"context"
	"encoding/json"
	"fmt"

	"auctiond/internal/domain"
	"auctiond/pkg/logger"
)

// NotificationRouter fans the admission engine's flat event streams out into
// per-auction topic streams. It keeps no state between invocations and is
// idempotent per input message: re-delivery produces the same publish.
type NotificationRouter struct {
	topics      domain.TopicPublisher
	broadcaster domain.AuctionBroadcaster
	log         logger.Logger
}

// NewNotificationRouter builds a router. broadcaster may be nil when no local
// observer bridge is attached.
func NewNotificationRouter(topics domain.TopicPublisher, broadcaster domain.AuctionBroadcaster,
	log logger.Logger) *NotificationRouter {
	return &NotificationRouter{
		topics:      topics,
		broadcaster: broadcaster,
		log:         log,
	}
}

// RouteBid republishes a validated bid under the auction's bid routing key.
func (r *NotificationRouter) RouteBid(ctx context.Context, event *domain.BidValidated) error {
	key := fmt.Sprintf("%s.bid", event.AuctionID)
	r.log.Info("Routing validated bid",
		"auction_id", event.AuctionID,
		"bidder_id", event.BidderID,
		"price", event.Price)

	if err := r.topics.Publish(ctx, key, event); err != nil {
		return err
	}
	r.broadcast(event.AuctionID, event)
	return nil
}

// RouteWinner republishes a winner determination under the auction's closed
// routing key.
func (r *NotificationRouter) RouteWinner(ctx context.Context, event *domain.WinnerDetermined) error {
	key := fmt.Sprintf("%s.closed", event.AuctionID)
	r.log.Info("Routing auction result",
		"auction_id", event.AuctionID,
		"winner_id", event.WinnerID,
		"final_price", event.FinalPrice)

	if err := r.topics.Publish(ctx, key, event); err != nil {
		return err
	}
	r.broadcast(event.AuctionID, event)
	return nil
}

func (r *NotificationRouter) broadcast(auctionID string, message interface{}) {
	if r.broadcaster == nil {
		return
	}
	if err := r.broadcaster.BroadcastToAuction(auctionID, message); err != nil {
		r.log.Error("Observer broadcast failed", "auction_id", auctionID, "error", err)
	}
}

// HandleBidMessage decodes a raw bid-validated body and routes it.
func (r *NotificationRouter) HandleBidMessage(ctx context.Context, body []byte) error {
	var event domain.BidValidated
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode bid-validated: %w", err)
	}
	if event.AuctionID == "" {
		return fmt.Errorf("bid-validated without auction id")
	}
	return r.RouteBid(ctx, &event)
}

// HandleWinnerMessage decodes a raw winner-determined body and routes it.
func (r *NotificationRouter) HandleWinnerMessage(ctx context.Context, body []byte) error {
	var event domain.WinnerDetermined
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode winner-determined: %w", err)
	}
	if event.AuctionID == "" {
		return fmt.Errorf("winner-determined without auction id")
	}
	return r.RouteWinner(ctx, &event)
}
