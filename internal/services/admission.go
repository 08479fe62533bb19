package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"auctiond/internal/crypto"
	"auctiond/internal/domain"
	"auctiond/pkg/logger"
)

// AdmissionEngine is the gate every bid passes through. It authenticates the
// bidder, enforces the strictly-increasing price invariant per auction, and
// determines the single winner at close. All state lives in memory and is
// lost on restart.
type AdmissionEngine struct {
	keys domain.KeyRegistry
	pub  domain.AdmissionPublisher

	mu      sync.Mutex
	records map[string]*auctionRecord

	log logger.Logger
}

// auctionRecord is the per-auction arena slot: the known minimum price plus
// the current HighestBidRecord. Each slot has its own lock so bids for
// different auctions never block each other.
type auctionRecord struct {
	mu      sync.Mutex
	minimum float64
	bidder  string
	price   float64
	hasBid  bool
}

func NewAdmissionEngine(keys domain.KeyRegistry, pub domain.AdmissionPublisher,
	log logger.Logger) *AdmissionEngine {
	return &AdmissionEngine{
		keys:    keys,
		pub:     pub,
		records: make(map[string]*auctionRecord),
		log:     log,
	}
}

// record returns the arena slot for an auction, creating it on first touch.
// The engine lock covers only map access; price comparisons happen under the
// slot's own lock.
func (e *AdmissionEngine) record(auctionID string) *auctionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.records[auctionID]
	if !ok {
		rec = &auctionRecord{}
		e.records[auctionID] = rec
	}
	return rec
}

// OnAuctionOpened learns the auction's minimum admissible price. Bids for an
// auction the engine never saw open fall back to a zero minimum, so they only
// need a positive price.
func (e *AdmissionEngine) OnAuctionOpened(ctx context.Context, event *domain.AuctionOpened) {
	rec := e.record(event.AuctionID)
	rec.mu.Lock()
	rec.minimum = event.MinimumPrice
	rec.mu.Unlock()

	e.log.Info("Auction registered",
		"auction_id", event.AuctionID,
		"description", event.Description,
		"minimum_price", event.MinimumPrice)
}

// SubmitBid processes one bid to a terminal accept/reject outcome. On accept
// the highest-bid record is updated and a bid-validated event emitted; on
// reject the returned error carries the taxonomy reason. Rejections are never
// surfaced to the bidder, only logged; the caller keeps consuming.
func (e *AdmissionEngine) SubmitBid(ctx context.Context, bid *domain.Bid) error {
	if !bid.Complete() {
		return e.reject(bid, domain.ErrIncompleteBid)
	}

	pub, err := e.keys.PublicKey(ctx, bid.BidderID)
	if err != nil {
		return e.reject(bid, err)
	}

	if err := crypto.VerifyIdentityToken(pub, bid.Signature); err != nil {
		return e.reject(bid, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err))
	}

	rec := e.record(bid.AuctionID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	floor := rec.minimum
	if rec.hasBid {
		floor = rec.price
	}
	if bid.Price <= floor {
		return e.reject(bid, fmt.Errorf("%w: current quote %.2f", domain.ErrInsufficientValue, floor))
	}

	rec.bidder = bid.BidderID
	rec.price = bid.Price
	rec.hasBid = true

	e.log.Info("Bid validated",
		"auction_id", bid.AuctionID,
		"bidder_id", bid.BidderID,
		"price", bid.Price)

	// Emitted under the slot lock so validated events for one auction leave
	// in accepted order.
	return e.pub.BidValidated(ctx, &domain.BidValidated{
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Price:     bid.Price,
	})
}

func (e *AdmissionEngine) reject(bid *domain.Bid, err error) error {
	reason := domain.RejectionReason(err)
	if reason == "" {
		// Outside the rejection taxonomy: an operational failure, such as an
		// unreadable key file, not a protocol rejection.
		reason = "registry_error"
	}
	e.log.Warn("Bid rejected",
		"auction_id", bid.AuctionID,
		"bidder_id", bid.BidderID,
		"price", bid.Price,
		"reason", reason,
		"error", err)
	return err
}

// OnAuctionClosed reads the highest-bid record and emits the winner
// determination; with no admitted bid it emits the no-winner sentinel and a
// zero price. The slot lock orders this read after every bid already being
// processed for the auction. Records are kept afterwards: a bid that arrives
// later is still checked against this stale state, matching the protocol's
// declared close-race behavior.
func (e *AdmissionEngine) OnAuctionClosed(ctx context.Context, auctionID string) error {
	rec := e.record(auctionID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	outcome := &domain.WinnerDetermined{
		AuctionID:  auctionID,
		WinnerID:   domain.NoWinnerID,
		FinalPrice: 0,
	}
	if rec.hasBid {
		outcome.WinnerID = rec.bidder
		outcome.FinalPrice = rec.price
	}

	if outcome.WinnerID == domain.NoWinnerID {
		e.log.Warn("Auction closed without valid bids", "auction_id", auctionID)
	} else {
		e.log.Info("Winner determined",
			"auction_id", auctionID,
			"winner_id", outcome.WinnerID,
			"final_price", outcome.FinalPrice)
	}

	return e.pub.WinnerDetermined(ctx, outcome)
}

// HandleBidMessage decodes a raw bid body and submits it. Undecodable bodies
// count as incomplete bids.
func (e *AdmissionEngine) HandleBidMessage(ctx context.Context, body []byte) error {
	var bid domain.Bid
	if err := json.Unmarshal(body, &bid); err != nil {
		return e.reject(&bid, fmt.Errorf("%w: %v", domain.ErrIncompleteBid, err))
	}
	return e.SubmitBid(ctx, &bid)
}

// HandleOpenedMessage decodes an auction-opened body.
func (e *AdmissionEngine) HandleOpenedMessage(ctx context.Context, body []byte) error {
	var event domain.AuctionOpened
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode auction-opened: %w", err)
	}
	e.OnAuctionOpened(ctx, &event)
	return nil
}

// HandleClosedMessage decodes an auction-closed body and runs the winner
// determination.
func (e *AdmissionEngine) HandleClosedMessage(ctx context.Context, body []byte) error {
	var event domain.AuctionClosed
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode auction-closed: %w", err)
	}
	if event.AuctionID == "" {
		return fmt.Errorf("auction-closed without auction id")
	}
	return e.OnAuctionClosed(ctx, event.AuctionID)
}
