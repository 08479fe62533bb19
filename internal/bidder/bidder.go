// Package bidder is the headless bidding client: it discovers auctions over
// the fan-out exchange, signs an identity token once, submits bids fire and
// forget, and follows the topic stream of every auction it has bid on.
package bidder

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"sync"

	"auctiond/internal/crypto"
	"auctiond/internal/domain"
	"auctiond/pkg/logger"
)

// StreamEvent is one message from a followed auction's topic stream,
// delivered to the application callback.
type StreamEvent struct {
	AuctionID  string
	RoutingKey string
	Body       []byte
}

type Bidder struct {
	id    string
	token string

	pub domain.BidPublisher
	sub domain.StreamSubscriber

	mu        sync.Mutex
	known     map[string]*domain.AuctionOpened
	quotes    map[string]float64
	listeners map[string]context.CancelFunc

	onEvent func(StreamEvent)
	log     logger.Logger
}

// New signs the identity token once with the bidder's private key; every bid
// this client ever submits carries that same token. onEvent may be nil.
func New(id string, key *rsa.PrivateKey, pub domain.BidPublisher, sub domain.StreamSubscriber,
	onEvent func(StreamEvent), log logger.Logger) (*Bidder, error) {
	if id == "" {
		return nil, fmt.Errorf("bidder id required")
	}

	token, err := crypto.SignIdentityToken(key)
	if err != nil {
		return nil, err
	}

	return &Bidder{
		id:        id,
		token:     token,
		pub:       pub,
		sub:       sub,
		known:     make(map[string]*domain.AuctionOpened),
		quotes:    make(map[string]float64),
		listeners: make(map[string]context.CancelFunc),
		onEvent:   onEvent,
		log:       log,
	}, nil
}

// Listen consumes auction announcements until the context ends. Run it in
// its own goroutine; PlaceBid only works for auctions seen here.
func (b *Bidder) Listen(ctx context.Context) error {
	b.log.Info("Waiting for auctions", "bidder_id", b.id)
	return b.sub.SubscribeFanout(ctx, b.handleAnnouncement)
}

func (b *Bidder) handleAnnouncement(ctx context.Context, body []byte) error {
	var event domain.AuctionOpened
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode announcement: %w", err)
	}
	if event.AuctionID == "" {
		return fmt.Errorf("announcement without auction id")
	}

	b.mu.Lock()
	b.known[event.AuctionID] = &event
	if _, ok := b.quotes[event.AuctionID]; !ok {
		b.quotes[event.AuctionID] = event.MinimumPrice
	}
	b.mu.Unlock()

	b.log.Info("Auction discovered",
		"auction_id", event.AuctionID,
		"description", event.Description,
		"minimum_price", event.MinimumPrice,
		"end_time", event.EndTime)
	return nil
}

// KnownAuctions lists every auction announced so far.
func (b *Bidder) KnownAuctions() []*domain.AuctionOpened {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*domain.AuctionOpened, 0, len(b.known))
	for _, a := range b.known {
		out = append(out, a)
	}
	return out
}

// PlaceBid signs nothing new: the precomputed identity token rides along
// with the bid. The first bid on an auction spawns a listener on its topic
// stream. Submission is fire and forget; acceptance shows up on the stream,
// never as a return value.
func (b *Bidder) PlaceBid(ctx context.Context, auctionID string, price float64) error {
	b.mu.Lock()
	_, knownAuction := b.known[auctionID]
	quote := b.quotes[auctionID]
	b.mu.Unlock()

	if !knownAuction {
		return fmt.Errorf("unknown auction %s", auctionID)
	}
	if price <= 0 {
		return fmt.Errorf("bid price must be positive, got %.2f", price)
	}
	if price <= quote {
		return fmt.Errorf("bid %.2f does not beat current quote %.2f", price, quote)
	}

	b.ensureListener(auctionID)

	bid := &domain.Bid{
		AuctionID: auctionID,
		BidderID:  b.id,
		Price:     price,
		Signature: b.token,
	}
	if err := b.pub.SubmitBid(ctx, bid); err != nil {
		return fmt.Errorf("submit bid: %w", err)
	}

	b.log.Info("Bid submitted", "auction_id", auctionID, "price", price)
	return nil
}

// ensureListener spawns the per-auction stream listener on first interest.
// Each listener owns its subscription and dies with its cancel func.
func (b *Bidder) ensureListener(auctionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.listeners[auctionID]; ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.listeners[auctionID] = cancel

	go func() {
		key := fmt.Sprintf("%s.*", auctionID)
		err := b.sub.SubscribeTopic(ctx, key, func(ctx context.Context, routingKey string, body []byte) error {
			b.handleStream(auctionID, routingKey, body)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			b.log.Error("Auction stream lost", "auction_id", auctionID, "error", err)
		}
	}()
}

func (b *Bidder) handleStream(auctionID, routingKey string, body []byte) {
	var update domain.BidValidated
	if fmt.Sprintf("%s.bid", auctionID) == routingKey {
		if err := json.Unmarshal(body, &update); err == nil {
			b.mu.Lock()
			if update.Price > b.quotes[auctionID] {
				b.quotes[auctionID] = update.Price
			}
			b.mu.Unlock()
		}
	}

	if b.onEvent != nil {
		b.onEvent(StreamEvent{AuctionID: auctionID, RoutingKey: routingKey, Body: body})
	}
}

// StopWatching cancels the auction's stream listener once the bidder loses
// interest.
func (b *Bidder) StopWatching(auctionID string) {
	b.mu.Lock()
	cancel, ok := b.listeners[auctionID]
	if ok {
		delete(b.listeners, auctionID)
	}
	b.mu.Unlock()

	if ok {
		cancel()
	}
}

// Close cancels every stream listener.
func (b *Bidder) Close() {
	b.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(b.listeners))
	for id, cancel := range b.listeners {
		cancels = append(cancels, cancel)
		delete(b.listeners, id)
	}
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// CurrentQuote reports the best known price for an auction, fed by its
// stream listener.
func (b *Bidder) CurrentQuote(auctionID string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quotes[auctionID]
}
