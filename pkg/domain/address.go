package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "escrowd/pkg/domain-errors"
)

// Address is a lowercase, 0x-prefixed 20-byte account address.
// Invariant: exactly 42 characters, hex body, never mixed case.
//
// Usage: construct via ParseAddress at trust boundaries; direct casting
// bypasses checksum validation.
type Address string

const addressHexLen = 40

// ParseAddress validates external input. All-lowercase and all-uppercase hex
// bodies are accepted as-is; mixed case must carry a valid EIP-55 checksum.
//
// Errors: returns CodeValidation for malformed input or a checksum mismatch.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "address cannot be empty")
	}
	if len(s) != addressHexLen+2 || !(strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		return "", dErrors.New(dErrors.CodeValidation, "address must be 0x followed by 40 hex characters")
	}
	body := s[2:]
	if _, err := hex.DecodeString(body); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "address must be hex encoded")
	}
	lower := strings.ToLower(body)
	if body != lower && body != strings.ToUpper(body) {
		if checksum(lower) != body {
			return "", dErrors.New(dErrors.CodeValidation, "address checksum mismatch")
		}
	}
	return Address("0x" + lower), nil
}

// MustParseAddress is for tests and fixtures only.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the normalized lowercase form used as a storage key.
func (a Address) String() string {
	return string(a)
}

// Checksummed returns the EIP-55 mixed-case rendering for display.
func (a Address) Checksummed() string {
	if a.IsNil() {
		return ""
	}
	return "0x" + checksum(string(a)[2:])
}

// IsNil returns true if the address is unset.
func (a Address) IsNil() bool {
	return a == ""
}

// checksum applies EIP-55 casing to a lowercase hex body.
func checksum(lowerHex string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lowerHex))
	digest := h.Sum(nil)

	out := []byte(lowerHex)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - 32
		}
	}
	return string(out)
}
