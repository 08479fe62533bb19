// Package rabbitmq binds the services to the broker topology: the fan-out
// exchange announcing new auctions, the durable work queues between the
// services, and the per-auction topic exchange observers subscribe to.
package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	"auctiond/internal/domain"
	"auctiond/pkg/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker topology. The names are part of the wire contract shared with every
// bidder and observer.
const (
	ExchangeAuctions = "leiloes" // fan-out, announces auction-opened to all bidders
	ExchangeTopic    = "leilao"  // topic, per-auction streams

	QueueAuctionOpened = "leilao_iniciado"
	QueueAuctionClosed = "leilao_finalizado"
	QueueBidSubmitted  = "lance_realizado"
	QueueBidValidated  = "lance_validado"
	QueueWinner        = "leilao_vencedor"
)

// Client owns one broker connection. Publishing goes through a single shared
// channel behind a mutex; every consumption loop gets a channel of its own.
type Client struct {
	conn *amqp.Connection

	pubMu sync.Mutex
	pubCh *amqp.Channel

	log logger.Logger
}

func NewClient(url string, log logger.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}

	c := &Client{conn: conn, pubCh: ch, log: log}
	if err := c.declareTopology(ch); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info("Connected to broker", "url", url)
	return c, nil
}

func (c *Client) declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeAuctions, "fanout", false, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeAuctions, err)
	}
	if err := ch.ExchangeDeclare(ExchangeTopic, "topic", false, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeTopic, err)
	}

	queues := []string{
		QueueAuctionOpened,
		QueueAuctionClosed,
		QueueBidSubmitted,
		QueueBidValidated,
		QueueWinner,
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	return c.pubCh.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume runs a consumption loop on a named durable queue. It blocks until
// the context is cancelled or the broker connection is lost; connection loss
// is returned as an error and is fatal to the caller (no reconnect).
func (c *Client) Consume(ctx context.Context, queue string, handler domain.MessageHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel for %s: %w", queue, err)
	}
	defer ch.Close()

	return c.consumeLoop(ctx, ch, queue, func(ctx context.Context, msg amqp.Delivery) error {
		return handler(ctx, msg.Body)
	})
}

// SubscribeFanout binds a fresh server-named queue to the auction fan-out
// exchange and consumes from it. Every subscriber gets its own copy of each
// announcement.
func (c *Client) SubscribeFanout(ctx context.Context, handler domain.MessageHandler) error {
	return c.subscribeExchange(ctx, ExchangeAuctions, "", func(ctx context.Context, msg amqp.Delivery) error {
		return handler(ctx, msg.Body)
	})
}

// SubscribeTopic consumes the per-auction topic stream selected by the
// binding key, e.g. "auction_01.*" for everything about one auction. The
// handler sees the routing key, which is how stream consumers tell a bid
// update from a close.
func (c *Client) SubscribeTopic(ctx context.Context, bindingKey string, handler domain.StreamHandler) error {
	return c.subscribeExchange(ctx, ExchangeTopic, bindingKey, func(ctx context.Context, msg amqp.Delivery) error {
		return handler(ctx, msg.RoutingKey, msg.Body)
	})
}

type deliveryHandler func(ctx context.Context, msg amqp.Delivery) error

func (c *Client) subscribeExchange(ctx context.Context, exchange, bindingKey string, handler deliveryHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel for %s: %w", exchange, err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare subscription queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, bindingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", q.Name, exchange, err)
	}

	return c.consumeLoop(ctx, ch, q.Name, handler)
}

func (c *Client) consumeLoop(ctx context.Context, ch *amqp.Channel, queue string, handler deliveryHandler) error {
	tag := fmt.Sprintf("%s-%s", queue, uuid.NewString()[:8])
	deliveries, err := ch.Consume(queue, tag, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	c.log.Info("Consuming", "queue", queue, "consumer_tag", tag)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("broker connection lost on %s", queue)
			}
			if err := handler(ctx, msg); err != nil {
				c.log.Warn("Message handling failed", "queue", queue, "error", err)
			}
		}
	}
}
