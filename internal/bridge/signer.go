package bridge

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Signer produces and checks transmission signatures. Signatures are hex.
type Signer interface {
	Algorithm() string
	Sign(msg []byte) (string, error)
	Verify(msg []byte, signature string) bool
}

// HMACSigner signs with HMAC-SHA256 over a shared secret.
type HMACSigner struct {
	secret []byte
}

// NewHMACSigner creates an HMAC signer. The secret must not be empty.
func NewHMACSigner(secret string) (*HMACSigner, error) {
	if secret == "" {
		return nil, errors.New("hmac secret is empty")
	}
	return &HMACSigner{secret: []byte(secret)}, nil
}

func (s *HMACSigner) Algorithm() string { return "hmac-sha256" }

func (s *HMACSigner) Sign(msg []byte) (string, error) {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify compares in constant time.
func (s *HMACSigner) Verify(msg []byte, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(msg)
	return hmac.Equal(got, mac.Sum(nil))
}

// Ed25519Signer signs with an Ed25519 private key.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewEd25519Signer derives the key pair from a hex encoded 32 byte seed.
func NewEd25519Signer(seedHex string) (*Ed25519Signer, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decode ed25519 seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Ed25519Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

func (s *Ed25519Signer) Algorithm() string { return "ed25519" }

func (s *Ed25519Signer) Sign(msg []byte) (string, error) {
	return hex.EncodeToString(ed25519.Sign(s.priv, msg)), nil
}

func (s *Ed25519Signer) Verify(msg []byte, signature string) bool {
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return ed25519.Verify(s.pub, msg, sig)
}

// PublicKey returns the hex encoded public key for consumers.
func (s *Ed25519Signer) PublicKey() string {
	return hex.EncodeToString(s.pub)
}

// NewSigner builds the signer selected by cfg.SigningMode.
func NewSigner(cfg Config) (Signer, error) {
	switch cfg.SigningMode {
	case "", ModeHMAC:
		return NewHMACSigner(cfg.Secret)
	case ModeEd25519:
		return NewEd25519Signer(cfg.Ed25519Seed)
	}
	return nil, fmt.Errorf("unknown signing mode %q", cfg.SigningMode)
}
