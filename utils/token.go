package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// csrf
func GenerateState() (string, error) {
	b := make([]byte, 16) // 128-bit
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateState checks the shape of a state value before it reaches the store.
func ValidateState(state string) bool {
	if len(state) != 22 {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(state)
	return err == nil
}
