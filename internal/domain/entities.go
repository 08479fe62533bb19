package domain

import (
	"time"
)

// Auction is a single catalog entry driven through its lifecycle by the
// lifecycle manager. Status only ever moves forward.
type Auction struct {
	ID           string
	Description  string
	MinimumPrice float64
	StartTime    time.Time
	EndTime      time.Time
	Status       AuctionStatus
}

type AuctionStatus int

const (
	AuctionPending AuctionStatus = iota
	AuctionActive
	AuctionStatusClosed
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionPending:
		return "pending"
	case AuctionActive:
		return "active"
	case AuctionStatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Bid is a submitted offer as it arrives off the wire. Signature is the
// base64-encoded identity token; it authenticates the bidder, not the bid
// content, so the same token is valid for every bid from that bidder.
type Bid struct {
	AuctionID string  `json:"auction_id"`
	BidderID  string  `json:"bidder_id"`
	Price     float64 `json:"price"`
	Signature string  `json:"signature"`
}

// Complete reports whether every required field is present.
func (b *Bid) Complete() bool {
	return b.AuctionID != "" && b.BidderID != "" && b.Price != 0 && b.Signature != ""
}

// HighestBidRecord is the authoritative leading bid for one auction, owned
// exclusively by the admission engine.
type HighestBidRecord struct {
	AuctionID string
	BidderID  string
	Price     float64
}

// NoWinnerID is the sentinel winner identity for an auction that closed
// without a single admitted bid.
const NoWinnerID = "nobody"
