package services

import (
	"context"
	"testing"
	"time"

	"auctiond/internal/domain"
	"auctiond/pkg/logger"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func testCatalog(base time.Time) []*domain.Auction {
	return []*domain.Auction{
		{
			ID:           "auction_01",
			Description:  "vintage guitar",
			MinimumPrice: 100,
			StartTime:    base,
			EndTime:      base.Add(2 * time.Minute),
		},
		{
			ID:           "auction_02",
			Description:  "rare vinyl",
			MinimumPrice: 50,
			StartTime:    base.Add(time.Minute),
			EndTime:      base.Add(3 * time.Minute),
		},
	}
}

func TestTickOpensDueAuctions(t *testing.T) {
	base := time.Now()
	pub := &fakeLifecyclePublisher{}
	m := NewLifecycleManager(testCatalog(base), pub, time.Second, logger.Nop())

	m.Tick(context.Background(), base.Add(time.Second))

	assert.Equal(t, 1, len(pub.opened))
	check.Equal(t, "auction_01", pub.opened[0].AuctionID)
	check.Equal(t, "vintage guitar", pub.opened[0].Description)
	check.Equal(t, 100.0, pub.opened[0].MinimumPrice)
	check.Equal(t, 0, len(pub.closed))

	auctions := m.Auctions()
	check.Equal(t, domain.AuctionActive, auctions[0].Status)
	check.Equal(t, domain.AuctionPending, auctions[1].Status)
}

func TestTickEmitsInCatalogOrder(t *testing.T) {
	base := time.Now()
	pub := &fakeLifecyclePublisher{}
	m := NewLifecycleManager(testCatalog(base), pub, time.Second, logger.Nop())

	// Both auctions are due at once; events must follow catalog order.
	m.Tick(context.Background(), base.Add(90*time.Second))

	assert.Equal(t, 2, len(pub.order))
	check.Equal(t, "opened:auction_01", pub.order[0])
	check.Equal(t, "opened:auction_02", pub.order[1])
}

func TestTickClosesExpiredAuction(t *testing.T) {
	base := time.Now()
	pub := &fakeLifecyclePublisher{}
	m := NewLifecycleManager(testCatalog(base), pub, time.Second, logger.Nop())

	m.Tick(context.Background(), base)
	m.Tick(context.Background(), base.Add(2*time.Minute))

	assert.Equal(t, 1, len(pub.closed))
	check.Equal(t, "auction_01", pub.closed[0].AuctionID)
	check.Equal(t, domain.AuctionStatusClosed, m.Auctions()[0].Status)
}

func TestStatesOnlyMoveForward(t *testing.T) {
	base := time.Now()
	pub := &fakeLifecyclePublisher{}
	m := NewLifecycleManager(testCatalog(base), pub, time.Second, logger.Nop())

	m.Tick(context.Background(), base)
	m.Tick(context.Background(), base.Add(5*time.Minute))

	// Re-scanning inside or before the original window must not revive it.
	m.Tick(context.Background(), base.Add(time.Second))
	m.Tick(context.Background(), base.Add(10*time.Minute))

	check.Equal(t, domain.AuctionStatusClosed, m.Auctions()[0].Status)

	// Exactly one opened and one closed event per auction.
	counts := map[string]int{}
	for _, entry := range pub.order {
		counts[entry]++
	}
	for _, n := range counts {
		check.Equal(t, 1, n)
	}
}

func TestPendingAuctionWhoseWindowPassedNeverOpens(t *testing.T) {
	base := time.Now()
	pub := &fakeLifecyclePublisher{}
	m := NewLifecycleManager(testCatalog(base), pub, time.Second, logger.Nop())

	// First scan happens only after auction_01's whole window has passed.
	m.Tick(context.Background(), base.Add(10*time.Minute))

	check.Equal(t, 0, len(pub.opened))
	check.Equal(t, 0, len(pub.closed))
	check.Equal(t, domain.AuctionPending, m.Auctions()[0].Status)
}
