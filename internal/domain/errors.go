package domain

import "errors"

// Rejection taxonomy for the bid admission path. All of these are local,
// recoverable rejections: the bid is dropped, the reason is logged, and the
// consumption loop moves on to the next message. None of them is ever
// surfaced back to the bidder synchronously.
var (
	ErrIncompleteBid     = errors.New("incomplete bid")
	ErrUnknownBidder     = errors.New("unknown bidder")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInsufficientValue = errors.New("insufficient value")
)

// RejectionReason maps a rejection error to its short log label. Returns ""
// for errors outside the taxonomy.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrIncompleteBid):
		return "incomplete_bid"
	case errors.Is(err, ErrUnknownBidder):
		return "unknown_bidder"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrInsufficientValue):
		return "insufficient_value"
	default:
		return ""
	}
}
