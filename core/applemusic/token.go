package applemusic

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenLifetime is Apple's maximum developer token validity.
const tokenLifetime = 180 * 24 * time.Hour

// TokenMinter mints ES256 developer tokens for the Apple Music API from a
// .p8 private key. Tokens are reused until shortly before expiry.
type TokenMinter struct {
	teamID  string
	keyID   string
	keyPath string

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	// now is injected for tests; defaults to time.Now.
	now func() time.Time
}

// NewTokenMinter creates a minter for the given team, key id and key file.
func NewTokenMinter(teamID, keyID, keyPath string) *TokenMinter {
	return &TokenMinter{
		teamID:  teamID,
		keyID:   keyID,
		keyPath: keyPath,
		now:     time.Now,
	}
}

func (m *TokenMinter) loadKey() (*ecdsa.PrivateKey, error) {
	pemBytes, err := os.ReadFile(m.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	key, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse EC private key: %w", err)
	}
	return key, nil
}

// Token returns a valid developer token, minting a new one when the cached
// token is within an hour of expiry.
func (m *TokenMinter) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.token != "" && now.Before(m.expiresAt.Add(-time.Hour)) {
		return m.token, nil
	}

	key, err := m.loadKey()
	if err != nil {
		return "", err
	}

	expiresAt := now.Add(tokenLifetime)
	claims := jwt.RegisteredClaims{
		Issuer:    m.teamID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = m.keyID

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign developer token: %w", err)
	}

	m.token = signed
	m.expiresAt = expiresAt
	return signed, nil
}
