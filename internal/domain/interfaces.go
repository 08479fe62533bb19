package domain

import (
	"context"
	"crypto/rsa"
)

// CatalogSource provides the initial auction catalog. Loaded exactly once at
// lifecycle-service startup; a load failure is fatal.
type CatalogSource interface {
	LoadCatalog(ctx context.Context) ([]*Auction, error)
}

// KeyRegistry resolves a bidder identity to its registered public key.
// Implementations return ErrUnknownBidder when no key is registered.
type KeyRegistry interface {
	PublicKey(ctx context.Context, bidderID string) (*rsa.PublicKey, error)
}

// LifecyclePublisher receives auction state transition events.
type LifecyclePublisher interface {
	AuctionOpened(ctx context.Context, event *AuctionOpened) error
	AuctionClosed(ctx context.Context, event *AuctionClosed) error
}

// AdmissionPublisher receives the admission engine's output events.
type AdmissionPublisher interface {
	BidValidated(ctx context.Context, event *BidValidated) error
	WinnerDetermined(ctx context.Context, event *WinnerDetermined) error
}

// TopicPublisher publishes onto the per-auction topic exchange under a
// caller-chosen routing key.
type TopicPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// AuctionBroadcaster pushes a routed event to every local observer of one
// auction. Implemented by the notify-service WebSocket bridge.
type AuctionBroadcaster interface {
	BroadcastToAuction(auctionID string, message interface{}) error
}

// MessageHandler processes one raw message body off a queue. A returned
// error means the message was dropped; delivery is at most once regardless.
type MessageHandler func(ctx context.Context, body []byte) error

// StreamHandler processes one message from a topic stream together with the
// routing key it was published under.
type StreamHandler func(ctx context.Context, routingKey string, body []byte) error

// BidPublisher submits a signed bid into the fabric, fire and forget. No
// acceptance or rejection ever comes back on this path.
type BidPublisher interface {
	SubmitBid(ctx context.Context, bid *Bid) error
}

// StreamSubscriber is the bidder's view of the fabric: the auction
// announcement fan-out plus per-auction topic streams.
type StreamSubscriber interface {
	SubscribeFanout(ctx context.Context, handler MessageHandler) error
	SubscribeTopic(ctx context.Context, bindingKey string, handler StreamHandler) error
}
