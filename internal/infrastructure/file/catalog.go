// Package file holds the file-backed collaborators: the JSON auction catalog
// and the PEM key registry directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"auctiond/internal/domain"
)

// CatalogSource loads the auction catalog from a JSON file. Entries carry
// either absolute RFC 3339 start/end timestamps or windows relative to load
// time ("starts_in"/"runs_for"), which is the convenient form for demo runs.
type CatalogSource struct {
	path string
}

func NewCatalogSource(path string) *CatalogSource {
	return &CatalogSource{path: path}
}

type catalogFile struct {
	Auctions []catalogEntry `json:"auctions"`
}

type catalogEntry struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	MinimumPrice float64   `json:"minimum_price"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	StartsIn     string    `json:"starts_in"`
	RunsFor      string    `json:"runs_for"`
}

func (s *CatalogSource) LoadCatalog(ctx context.Context) ([]*domain.Auction, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var cat catalogFile
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(cat.Auctions) == 0 {
		return nil, fmt.Errorf("catalog %s contains no auctions", s.path)
	}

	now := time.Now()
	auctions := make([]*domain.Auction, 0, len(cat.Auctions))
	for i, entry := range cat.Auctions {
		auction, err := entry.toAuction(now)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		auctions = append(auctions, auction)
	}
	return auctions, nil
}

func (e catalogEntry) toAuction(now time.Time) (*domain.Auction, error) {
	if e.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	if e.Description == "" {
		return nil, fmt.Errorf("missing description")
	}
	if e.MinimumPrice < 0 {
		return nil, fmt.Errorf("negative minimum price")
	}

	start, end := e.StartTime, e.EndTime
	if e.StartsIn != "" {
		delay, err := time.ParseDuration(e.StartsIn)
		if err != nil {
			return nil, fmt.Errorf("bad starts_in: %w", err)
		}
		length, err := time.ParseDuration(e.RunsFor)
		if err != nil {
			return nil, fmt.Errorf("bad runs_for: %w", err)
		}
		start = now.Add(delay)
		end = start.Add(length)
	}

	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("missing auction window")
	}
	if !end.After(start) {
		return nil, fmt.Errorf("end time not after start time")
	}

	return &domain.Auction{
		ID:           e.ID,
		Description:  e.Description,
		MinimumPrice: e.MinimumPrice,
		StartTime:    start,
		EndTime:      end,
		Status:       domain.AuctionPending,
	}, nil
}
