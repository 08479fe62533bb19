package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"auctiond/internal/domain"
)

// Publisher implements the domain publishing interfaces on top of the broker
// topology.
type Publisher struct {
	client *Client
}

func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) publishJSON(ctx context.Context, exchange, routingKey string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %T: %w", v, err)
	}
	return p.client.publish(ctx, exchange, routingKey, body)
}

// AuctionOpened goes to the durable work queue for late-joining services and
// to the fan-out exchange for live bidders, in that order.
func (p *Publisher) AuctionOpened(ctx context.Context, event *domain.AuctionOpened) error {
	if err := p.publishJSON(ctx, "", QueueAuctionOpened, event); err != nil {
		return err
	}
	return p.publishJSON(ctx, ExchangeAuctions, "", event)
}

func (p *Publisher) AuctionClosed(ctx context.Context, event *domain.AuctionClosed) error {
	return p.publishJSON(ctx, "", QueueAuctionClosed, event)
}

func (p *Publisher) BidValidated(ctx context.Context, event *domain.BidValidated) error {
	return p.publishJSON(ctx, "", QueueBidValidated, event)
}

func (p *Publisher) WinnerDetermined(ctx context.Context, event *domain.WinnerDetermined) error {
	return p.publishJSON(ctx, "", QueueWinner, event)
}

// Publish sends onto the per-auction topic exchange.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	return p.publishJSON(ctx, ExchangeTopic, routingKey, payload)
}

// SubmitBid sends a signed bid onto the raw bid queue, fire and forget.
func (p *Publisher) SubmitBid(ctx context.Context, bid *domain.Bid) error {
	return p.publishJSON(ctx, "", QueueBidSubmitted, bid)
}
