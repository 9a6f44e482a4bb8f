package state

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arturoeanton/twitter-action-broker/internal/port"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer implements port.StateSealer. The OAuth state is the PKCE verifier and
// its issue time, encrypted and authenticated with XChaCha20-Poly1305, so a
// forged, tampered or stale state never opens and no server-side storage is needed.
type Sealer struct {
	aead cipher.AEAD
	ttl  time.Duration
	now  func() time.Time
}

type payload struct {
	Verifier string `json:"v"`
	IssuedAt int64  `json:"t"`
}

// NewSealer derives the key from secret. An empty secret picks a random key,
// which invalidates in-flight logins on restart.
func NewSealer(secret string, ttl time.Duration) (*Sealer, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if secret == "" {
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("state: generate key: %w", err)
		}
	} else {
		sum := sha256.Sum256([]byte(secret))
		copy(key, sum[:])
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("state: init cipher: %w", err)
	}

	return &Sealer{aead: aead, ttl: ttl, now: time.Now}, nil
}

// Seal returns a URL-safe state carrying verifier.
func (s *Sealer) Seal(verifier string) (string, error) {
	plain, err := json.Marshal(payload{Verifier: verifier, IssuedAt: s.now().Unix()})
	if err != nil {
		return "", err
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("state: generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open returns the verifier sealed in state, or port.ErrInvalidState.
func (s *Sealer) Open(state string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil || len(raw) < s.aead.NonceSize()+s.aead.Overhead() {
		return "", port.ErrInvalidState
	}

	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", port.ErrInvalidState
	}

	var p payload
	if err := json.Unmarshal(plain, &p); err != nil || p.Verifier == "" {
		return "", port.ErrInvalidState
	}

	issued := time.Unix(p.IssuedAt, 0)
	if s.ttl > 0 && s.now().Sub(issued) > s.ttl {
		return "", fmt.Errorf("%w: expired", port.ErrInvalidState)
	}

	return p.Verifier, nil
}
