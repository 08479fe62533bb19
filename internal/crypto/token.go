// Package crypto implements the bidder identity token: an RSA PKCS#1 v1.5
// signature over SHA-256 of a fixed payload agreed out of band. The token
// authenticates the bidder's identity only; it is deliberately not bound to
// bid content, so one token is reused for every bid from that bidder.
package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
)

// IdentityPayload is the fixed message every identity token signs. It is part
// of the wire contract and must match on both sides of the fabric.
const IdentityPayload = "AplicacaoLeilao.2025.2"

const keyBits = 2048

// SignIdentityToken signs the fixed payload and returns the base64 token
// carried in every bid from this key's owner.
func SignIdentityToken(key *rsa.PrivateKey) (string, error) {
	digest := sha256.Sum256([]byte(IdentityPayload))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign identity token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyIdentityToken checks a base64 token against the bidder's registered
// public key. A malformed encoding and a failed verification are both
// reported as an error; callers map either to an invalid-signature rejection.
func VerifyIdentityToken(pub *rsa.PublicKey, token string) error {
	sig, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("decode identity token: %w", err)
	}
	digest := sha256.Sum256([]byte(IdentityPayload))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return fmt.Errorf("verify identity token: %w", err)
	}
	return nil
}

// GenerateKey creates a fresh bidder key pair.
func GenerateKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, keyBits)
}

// EncodePrivateKeyPEM renders a private key in PKCS#1 PEM form.
func EncodePrivateKeyPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

// EncodePublicKeyPEM renders a public key in PKIX PEM form, the layout the
// key registry reads back.
func EncodePublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// ParsePrivateKeyPEM parses a PKCS#1 private key PEM block.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in private key data")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// ParsePublicKeyPEM parses a PKIX public key PEM block and requires it to be
// an RSA key.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in public key data")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, want RSA", parsed)
	}
	return pub, nil
}
