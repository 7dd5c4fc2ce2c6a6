// Package auth mints and verifies the signed tokens that tie a websocket
// to a seat. A token is issued when a player joins over HTTP and presented
// when the socket attaches, so reconnects keep a stable identity.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the seat identity inside the token.
type Claims struct {
	PlayerID string `json:"playerId"`
	RoomCode string `json:"roomCode"`
	jwt.RegisteredClaims
}

// TokenLifetime bounds how long a join token stays valid. It comfortably
// outlives any single game.
const TokenLifetime = 24 * time.Hour

// Signer mints and verifies tokens with an HMAC secret.
type Signer struct {
	secret []byte
}

// NewSigner wraps the shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Mint issues a token binding a player to a room.
func (s *Signer) Mint(playerID uuid.UUID, roomCode string) (string, error) {
	claims := Claims{
		PlayerID: playerID.String(),
		RoomCode: roomCode,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the bound player and room.
func (s *Signer) Verify(tokenString string) (uuid.UUID, string, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, "", fmt.Errorf("invalid token")
	}
	playerID, err := uuid.Parse(claims.PlayerID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("bad player id in token: %w", err)
	}
	return playerID, claims.RoomCode, nil
}
