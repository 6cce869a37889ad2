package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DirectoryClaims are the claims of an access token issued by the account directory
type DirectoryClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// DirectoryTokens verifies account directory access tokens (HS256, sub = user id).
// Admin rights are not taken from the token; they are looked up in user_roles.
type DirectoryTokens struct {
	secret []byte
}

// NewDirectoryTokens creates a verifier for the directory's signing secret
func NewDirectoryTokens(secret string) *DirectoryTokens {
	return &DirectoryTokens{secret: []byte(secret)}
}

// Sign issues a directory-style token. Used by local tooling and tests.
func (d *DirectoryTokens) Sign(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &DirectoryClaims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(d.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Verify parses the token and returns the caller's user id
func (d *DirectoryTokens) Verify(tokenString string) (uuid.UUID, error) {
	claims := &DirectoryClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return d.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject: %w", err)
	}
	return userID, nil
}
