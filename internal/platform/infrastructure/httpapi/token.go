package httpapi

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 15 * time.Minute

// Claims are the claims of tokens presented to the platform API.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenSource mints HS256 bearer tokens for the configured client and reuses each
// token until shortly before it expires.
type TokenSource struct {
	secret   []byte
	clientID string
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenSource constructs a token source.
func NewTokenSource(secret []byte, clientID string, ttl time.Duration) (*TokenSource, error) {
	if len(secret) == 0 {
		return nil, errors.New("httpapi: empty jwt secret")
	}
	if clientID == "" {
		return nil, errors.New("httpapi: empty client id")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenSource{secret: secret, clientID: clientID, ttl: ttl, now: time.Now}, nil
}

// Token returns a valid signed token.
func (s *TokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.token != "" && now.Add(s.ttl/10).Before(s.expires) {
		return s.token, nil
	}
	expires := now.Add(s.ttl)
	claims := Claims{
		Scope: "sensors:write",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	s.token = signed
	s.expires = expires
	return signed, nil
}
