package domain

import "time"

// Wire payloads exchanged over the broker. All messages are UTF-8 JSON.

// AuctionOpened announces an auction transitioning to active. Published both
// on the durable work queue and on the fan-out exchange so late-joining
// services and live bidders each get a copy.
type AuctionOpened struct {
	AuctionID    string    `json:"auction_id"`
	Description  string    `json:"description"`
	MinimumPrice float64   `json:"minimum_price"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

// AuctionClosed announces an auction transitioning to closed.
type AuctionClosed struct {
	AuctionID string `json:"auction_id"`
}

// BidValidated is an admitted bid, emitted by the admission engine.
type BidValidated struct {
	AuctionID string  `json:"auction_id"`
	BidderID  string  `json:"bidder_id"`
	Price     float64 `json:"price"`
}

// WinnerDetermined is the outcome of one auction. WinnerID is NoWinnerID and
// FinalPrice zero when the auction closed without an admitted bid.
type WinnerDetermined struct {
	AuctionID  string  `json:"auction_id"`
	WinnerID   string  `json:"winner_id"`
	FinalPrice float64 `json:"final_price"`
}
