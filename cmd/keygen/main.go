// Command keygen provisions a bidder key pair: the private half for the
// bidder's own use, the public half registered where the admission service
// can find it (key directory or Redis, per config).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"auctiond/internal/config"
	"auctiond/internal/crypto"
	"auctiond/internal/infrastructure/file"
	auctionredis "auctiond/internal/infrastructure/redis"
	"auctiond/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
)

func main() {
	bidderID := flag.String("id", "", "bidder identity to provision")
	force := flag.Bool("force", false, "overwrite an existing key pair")
	flag.Parse()

	log := logger.New("keygen")

	if *bidderID == "" {
		fmt.Fprintln(os.Stderr, "usage: keygen -id <bidder-id> [-force]")
		os.Exit(1)
	}

	cfg, err := config.Load(0)
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	privPath := filepath.Join(cfg.Keys.Dir, file.PrivateKeyFile(*bidderID))
	if _, err := os.Stat(privPath); err == nil && !*force {
		log.Error("Key pair already exists", "path", privPath)
		os.Exit(1)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		log.Error("Failed to generate key", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Keys.Dir, 0o755); err != nil {
		log.Error("Failed to create key directory", "dir", cfg.Keys.Dir, "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(privPath, crypto.EncodePrivateKeyPEM(key), 0o600); err != nil {
		log.Error("Failed to write private key", "error", err)
		os.Exit(1)
	}

	pubPEM, err := crypto.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		log.Error("Failed to encode public key", "error", err)
		os.Exit(1)
	}
	pubPath := filepath.Join(cfg.Keys.Dir, file.PublicKeyFile(*bidderID))
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		log.Error("Failed to write public key", "error", err)
		os.Exit(1)
	}

	log.Info("Key pair written", "bidder_id", *bidderID, "private", privPath, "public", pubPath)

	if cfg.Keys.Registry == "redis" {
		rdb := redisClient.NewClient(&redisClient.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := auctionredis.NewKeyRegistry(rdb).Register(ctx, *bidderID, &key.PublicKey); err != nil {
			log.Error("Failed to register key in redis", "error", err)
			os.Exit(1)
		}
		log.Info("Public key registered in redis", "bidder_id", *bidderID)
	}
}
