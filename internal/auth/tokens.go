package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/scanlytics/scanlytics-server/internal/id"
)

const (
	tokenIssuer   = "scanlytics-server"
	tokenAudience = "scanlytics-dashboard"
	userClaim     = "user_id"
)

// ErrMissingUser is returned when a token is requested for, or carries, an
// empty user id.
var ErrMissingUser = errors.New("user id is required")

// TokenService issues and verifies PASETO v4.local access tokens.
type TokenService struct {
	key      paseto.V4SymmetricKey
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenService creates a token service from a hex-encoded key.
func NewTokenService(keyHex string, lifetime time.Duration) (*TokenService, error) {
	key, err := decodeKey(keyHex)
	if err != nil {
		return nil, err
	}
	return NewTokenServiceFromKey(key, lifetime)
}

// NewTokenServiceFromKey creates a token service from raw key bytes.
// Tokens expire lifetime after issue.
func NewTokenServiceFromKey(key []byte, lifetime time.Duration) (*TokenService, error) {
	if lifetime <= 0 {
		return nil, fmt.Errorf("access token duration must be positive, got %s", lifetime)
	}
	sym, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("load PASETO key: %w", err)
	}
	return &TokenService{key: sym, lifetime: lifetime, now: time.Now}, nil
}

// GenerateAccessToken issues a token identifying userID.
func (s *TokenService) GenerateAccessToken(userID string) (string, error) {
	if userID == "" {
		return "", ErrMissingUser
	}
	jti, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}

	issued := s.now()
	t := paseto.NewToken()
	t.SetIssuer(tokenIssuer)
	t.SetAudience(tokenAudience)
	t.SetSubject(userID)
	t.SetJti(jti)
	t.SetIssuedAt(issued)
	t.SetNotBefore(issued)
	t.SetExpiration(issued.Add(s.lifetime))
	if err := t.Set(userClaim, userID); err != nil {
		return "", fmt.Errorf("set %s claim: %w", userClaim, err)
	}

	return t.V4Encrypt(s.key, nil), nil
}

// VerifyAccessToken decrypts token and checks its issuer, audience and
// validity window at the current time.
func (s *TokenService) VerifyAccessToken(token string) (*AccessClaims, error) {
	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(tokenIssuer))
	p.AddRule(paseto.ForAudience(tokenAudience))
	p.AddRule(paseto.ValidAt(s.now()))

	parsed, err := p.ParseV4Local(s.key, token, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(parsed.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: %w", ErrMissingUser)
	}
	return &claims, nil
}

// AccessTokenDuration returns how long issued tokens stay valid.
func (s *TokenService) AccessTokenDuration() time.Duration {
	return s.lifetime
}
