package file

import (
	"context"
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"auctiond/internal/crypto"
	"auctiond/internal/domain"
)

// KeyRegistry resolves bidder public keys from a directory of PEM files
// named public_<bidderID>.pem, the layout cmd/keygen writes. Keys are parsed
// on first lookup and cached for the process lifetime.
type KeyRegistry struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*rsa.PublicKey
}

func NewKeyRegistry(dir string) *KeyRegistry {
	return &KeyRegistry{
		dir:   dir,
		cache: make(map[string]*rsa.PublicKey),
	}
}

func (r *KeyRegistry) PublicKey(ctx context.Context, bidderID string) (*rsa.PublicKey, error) {
	if strings.ContainsAny(bidderID, `/\.`) {
		// Bidder ids come off the wire; never let one walk the filesystem.
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownBidder, bidderID)
	}

	r.mu.RLock()
	pub, ok := r.cache[bidderID]
	r.mu.RUnlock()
	if ok {
		return pub, nil
	}

	data, err := os.ReadFile(filepath.Join(r.dir, PublicKeyFile(bidderID)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownBidder, bidderID)
		}
		return nil, fmt.Errorf("read public key for %s: %w", bidderID, err)
	}

	pub, err = crypto.ParsePublicKeyPEM(data)
	if err != nil {
		return nil, fmt.Errorf("public key for %s: %w", bidderID, err)
	}

	r.mu.Lock()
	r.cache[bidderID] = pub
	r.mu.Unlock()
	return pub, nil
}

// PublicKeyFile is the registry file name for a bidder's public key.
func PublicKeyFile(bidderID string) string {
	return fmt.Sprintf("public_%s.pem", bidderID)
}

// PrivateKeyFile is the file name cmd/keygen uses for the private half.
func PrivateKeyFile(bidderID string) string {
	return fmt.Sprintf("private_%s.pem", bidderID)
}
