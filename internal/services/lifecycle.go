package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auctiond/internal/domain"
	"auctiond/pkg/logger"

	"github.com/robfig/cron/v3"
)

// LifecycleManager owns the auction catalog and drives every auction through
// pending -> active -> closed purely as a function of wall-clock time. The
// catalog is loaded once at construction and re-scanned on a fixed interval;
// an auction may therefore stay open up to one interval past its nominal end.
type LifecycleManager struct {
	auctions []*domain.Auction
	pub      domain.LifecyclePublisher
	cron     *cron.Cron
	interval time.Duration
	mu       sync.Mutex
	log      logger.Logger
}

func NewLifecycleManager(catalog []*domain.Auction, pub domain.LifecyclePublisher,
	interval time.Duration, log logger.Logger) *LifecycleManager {
	return &LifecycleManager{
		auctions: catalog,
		pub:      pub,
		cron:     cron.New(cron.WithSeconds()),
		interval: interval,
		log:      log,
	}
}

// Start begins the polling scan. The scan runs for the process lifetime; it
// performs no I/O that can fail besides event publishing, which is logged and
// retried naturally on the next transition.
func (m *LifecycleManager) Start(ctx context.Context) error {
	m.log.Info("Starting lifecycle manager", "auctions", len(m.auctions), "interval", m.interval)

	for _, a := range m.auctions {
		m.log.Info("Auction scheduled",
			"auction_id", a.ID,
			"description", a.Description,
			"minimum_price", a.MinimumPrice,
			"start_time", a.StartTime,
			"end_time", a.EndTime)
	}

	_, err := m.cron.AddFunc(fmt.Sprintf("@every %s", m.interval), func() {
		m.Tick(ctx, time.Now())
	})
	if err != nil {
		return err
	}

	m.cron.Start()
	return nil
}

func (m *LifecycleManager) Stop() {
	m.log.Info("Stopping lifecycle manager")
	m.cron.Stop()
}

// Tick scans the catalog in order and applies every transition due at now.
// Within one tick, events are emitted in catalog order. An auction whose
// whole window passed while still pending is never opened.
func (m *LifecycleManager) Tick(ctx context.Context, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, auction := range m.auctions {
		switch {
		case auction.Status == domain.AuctionPending &&
			!now.Before(auction.StartTime) && now.Before(auction.EndTime):
			m.openAuction(ctx, auction)

		case auction.Status == domain.AuctionActive && !now.Before(auction.EndTime):
			m.closeAuction(ctx, auction)
		}
	}
}

func (m *LifecycleManager) openAuction(ctx context.Context, auction *domain.Auction) {
	auction.Status = domain.AuctionActive
	m.log.Info("Auction opened",
		"auction_id", auction.ID,
		"description", auction.Description,
		"end_time", auction.EndTime)

	event := &domain.AuctionOpened{
		AuctionID:    auction.ID,
		Description:  auction.Description,
		MinimumPrice: auction.MinimumPrice,
		StartTime:    auction.StartTime,
		EndTime:      auction.EndTime,
	}
	if err := m.pub.AuctionOpened(ctx, event); err != nil {
		m.log.Error("Failed to publish auction-opened", "auction_id", auction.ID, "error", err)
	}
}

func (m *LifecycleManager) closeAuction(ctx context.Context, auction *domain.Auction) {
	auction.Status = domain.AuctionStatusClosed
	m.log.Info("Auction closed", "auction_id", auction.ID)

	event := &domain.AuctionClosed{AuctionID: auction.ID}
	if err := m.pub.AuctionClosed(ctx, event); err != nil {
		m.log.Error("Failed to publish auction-closed", "auction_id", auction.ID, "error", err)
	}
}

// Auctions exposes the catalog for the ops endpoint.
func (m *LifecycleManager) Auctions() []*domain.Auction {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Auction, len(m.auctions))
	copy(out, m.auctions)
	return out
}
