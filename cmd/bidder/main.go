package main

import (
	"bufio"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"auctiond/internal/bidder"
	"auctiond/internal/config"
	"auctiond/internal/crypto"
	"auctiond/internal/domain"
	"auctiond/internal/infrastructure/file"
	"auctiond/internal/infrastructure/rabbitmq"
	"auctiond/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: bidder <bidder-id>")
		os.Exit(1)
	}
	bidderID := os.Args[1]

	log := logger.New(fmt.Sprintf("bidder-%s", bidderID))

	cfg, err := config.Load(0)
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	key, err := loadOrCreateKey(cfg.Keys.Dir, bidderID, log)
	if err != nil {
		log.Error("Failed to prepare key pair", "error", err)
		os.Exit(1)
	}

	broker, err := rabbitmq.NewClient(cfg.AMQP.URL, log)
	if err != nil {
		log.Error("Failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer broker.Close()

	publisher := rabbitmq.NewPublisher(broker)

	b, err := bidder.New(bidderID, key, publisher, broker, streamPrinter(bidderID, log), log)
	if err != nil {
		log.Error("Failed to initialize bidder", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := b.Listen(ctx); err != nil && ctx.Err() == nil {
			log.Error("Announcement stream lost", "error", err)
			os.Exit(1)
		}
	}()

	runREPL(ctx, b, log)
}

// streamPrinter turns followed-auction events into human-readable lines.
func streamPrinter(bidderID string, log logger.Logger) func(bidder.StreamEvent) {
	return func(e bidder.StreamEvent) {
		switch {
		case strings.HasSuffix(e.RoutingKey, ".bid"):
			var update domain.BidValidated
			if err := json.Unmarshal(e.Body, &update); err != nil {
				return
			}
			log.Info("Quote updated",
				"auction_id", update.AuctionID,
				"bidder_id", update.BidderID,
				"price", update.Price)

		case strings.HasSuffix(e.RoutingKey, ".closed"):
			var outcome domain.WinnerDetermined
			if err := json.Unmarshal(e.Body, &outcome); err != nil {
				return
			}
			switch outcome.WinnerID {
			case bidderID:
				log.Info("You won the auction",
					"auction_id", outcome.AuctionID,
					"final_price", outcome.FinalPrice)
			case domain.NoWinnerID:
				log.Info("Auction ended without a winner", "auction_id", outcome.AuctionID)
			default:
				log.Info("Auction ended",
					"auction_id", outcome.AuctionID,
					"winner_id", outcome.WinnerID,
					"final_price", outcome.FinalPrice)
			}
		}
	}
}

func runREPL(ctx context.Context, b *bidder.Bidder, log logger.Logger) {
	fmt.Println("commands: list | bid <auction-id> <price> | unwatch <auction-id> | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "list":
			auctions := b.KnownAuctions()
			if len(auctions) == 0 {
				fmt.Println("no auctions discovered yet")
				continue
			}
			for _, a := range auctions {
				fmt.Printf("%s  %q  quote %.2f  ends %s\n",
					a.AuctionID, a.Description, b.CurrentQuote(a.AuctionID),
					a.EndTime.Format("15:04:05"))
			}

		case "bid":
			if len(fields) != 3 {
				fmt.Println("usage: bid <auction-id> <price>")
				continue
			}
			price, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				fmt.Println("bad price:", fields[2])
				continue
			}
			if err := b.PlaceBid(ctx, fields[1], price); err != nil {
				fmt.Println("bid not sent:", err)
			}

		case "unwatch":
			if len(fields) != 2 {
				fmt.Println("usage: unwatch <auction-id>")
				continue
			}
			b.StopWatching(fields[1])

		case "quit", "exit":
			return

		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

// loadOrCreateKey reads the bidder's private key, generating and registering
// a fresh pair on first run. The public half lands in the shared key
// directory where the admission service looks it up.
func loadOrCreateKey(dir, bidderID string, log logger.Logger) (*rsa.PrivateKey, error) {
	privPath := filepath.Join(dir, file.PrivateKeyFile(bidderID))

	data, err := os.ReadFile(privPath)
	if err == nil {
		return crypto.ParsePrivateKeyPEM(data)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	log.Info("Generating key pair", "bidder_id", bidderID, "dir", dir)
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(privPath, crypto.EncodePrivateKeyPEM(key), 0o600); err != nil {
		return nil, err
	}

	pubPEM, err := crypto.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	pubPath := filepath.Join(dir, file.PublicKeyFile(bidderID))
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return nil, err
	}

	return key, nil
}
