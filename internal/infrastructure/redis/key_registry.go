package redis

import (
	"context"
	"crypto/rsa"
	"fmt"

	"auctiond/internal/crypto"
	"auctiond/internal/domain"

	"github.com/go-redis/redis/v8"
)

// KeyRegistry resolves bidder public keys stored as PEM strings under
// bidder_keys:<bidderID>. Used when bidder provisioning happens through a
// shared store instead of a key directory on the admission host.
type KeyRegistry struct {
	client *redis.Client
}

func NewKeyRegistry(client *redis.Client) *KeyRegistry {
	return &KeyRegistry{client: client}
}

func keyFor(bidderID string) string {
	return fmt.Sprintf("bidder_keys:%s", bidderID)
}

func (r *KeyRegistry) PublicKey(ctx context.Context, bidderID string) (*rsa.PublicKey, error) {
	data, err := r.client.Get(ctx, keyFor(bidderID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownBidder, bidderID)
		}
		return nil, fmt.Errorf("fetch public key for %s: %w", bidderID, err)
	}

	pub, err := crypto.ParsePublicKeyPEM([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("public key for %s: %w", bidderID, err)
	}
	return pub, nil
}

// Register stores or replaces a bidder's public key. cmd/keygen calls this
// when provisioning against the shared store.
func (r *KeyRegistry) Register(ctx context.Context, bidderID string, pub *rsa.PublicKey) error {
	pemData, err := crypto.EncodePublicKeyPEM(pub)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyFor(bidderID), string(pemData), 0).Err()
}
