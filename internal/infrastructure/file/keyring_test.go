package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"auctiond/internal/crypto"
	"auctiond/internal/domain"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestKeyRegistryResolvesRegisteredBidder(t *testing.T) {
	dir := t.TempDir()

	key, err := crypto.GenerateKey()
	assert.Nil(t, err)
	pubPEM, err := crypto.EncodePublicKeyPEM(&key.PublicKey)
	assert.Nil(t, err)
	assert.Nil(t, os.WriteFile(filepath.Join(dir, PublicKeyFile("u1")), pubPEM, 0o644))

	registry := NewKeyRegistry(dir)
	pub, err := registry.PublicKey(context.Background(), "u1")
	assert.Nil(t, err)
	check.True(t, key.PublicKey.Equal(pub))

	// Second lookup is served from the cache.
	cached, err := registry.PublicKey(context.Background(), "u1")
	assert.Nil(t, err)
	check.True(t, pub.Equal(cached))
}

func TestKeyRegistryUnknownBidder(t *testing.T) {
	registry := NewKeyRegistry(t.TempDir())

	_, err := registry.PublicKey(context.Background(), "ghost")
	check.True(t, errors.Is(err, domain.ErrUnknownBidder))
}

func TestKeyRegistryRejectsPathTraversal(t *testing.T) {
	registry := NewKeyRegistry(t.TempDir())

	for _, id := range []string{"../u1", "a/b", `a\b`, "u1.pem"} {
		_, err := registry.PublicKey(context.Background(), id)
		check.True(t, errors.Is(err, domain.ErrUnknownBidder))
	}
}

func TestKeyRegistryBadPEM(t *testing.T) {
	dir := t.TempDir()
	assert.Nil(t, os.WriteFile(filepath.Join(dir, PublicKeyFile("u1")), []byte("junk"), 0o644))

	_, err := NewKeyRegistry(dir).PublicKey(context.Background(), "u1")
	check.NotNil(t, err)
	check.True(t, !errors.Is(err, domain.ErrUnknownBidder))
}
