package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	sessionTokenBytes = 32
	passwordLength    = 8
	// No I, O, 0 or 1: admins read these out to customers.
	passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateSessionToken returns a random Base64URL token (32 bytes) and its SHA256 hash as hex
func GenerateSessionToken() (token string, hashHex string, err error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("read random: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(b)
	return token, HashSessionToken(token), nil
}

// HashSessionToken returns SHA256 hex of the token
func HashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// GeneratePassword returns an 8 character credential password
func GeneratePassword() (string, error) {
	return randomString(passwordAlphabet, passwordLength)
}

func randomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// generateCode returns a 6 digit code in [100000, 999999]
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
