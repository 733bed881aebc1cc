package id

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewLoanID returns a random v4 UUID as 32 lowercase hex characters.
func NewLoanID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// IsLoanID reports whether s has the public loan id shape.
func IsLoanID(s string) bool {
	if len(s) != 32 || strings.ToLower(s) != s {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
