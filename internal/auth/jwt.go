package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")

	errInvalidFormat = errors.New("invalid authorization format")
)

// Claims holds the JWT payload of a seat token: the bearer plays Power in
// the game GameID.
type Claims struct {
	GameID string `json:"game_id"`
	Power  string `json:"power"`
	jwt.RegisteredClaims
}

// JWTManager handles token creation and validation.
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a JWTManager with the given secret. Tokens live for
// ttl, or 30 days when ttl is not positive.
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), expiry: ttl}
}

// GenerateToken creates a seat token for one power of a game.
func (m *JWTManager) GenerateToken(gameID, power string) (string, error) {
	now := time.Now()
	claims := &Claims{
		GameID: gameID,
		Power:  power,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   gameID + "/" + power,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// GenerateSeatTokens creates a token for every power in powers, keyed by
// power.
func (m *JWTManager) GenerateSeatTokens(gameID string, powers []string) (map[string]string, error) {
	out := make(map[string]string, len(powers))
	for _, p := range powers {
		token, err := m.GenerateToken(gameID, p)
		if err != nil {
			return nil, err
		}
		out[p] = token
	}
	return out, nil
}

// ValidateToken parses and validates a JWT string, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.GameID == "" || claims.Power == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
