package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "escrowd/pkg/domain-errors"
)

// TestParseAddress_Invariants validates the parsing invariant:
// "addresses are 0x + 40 hex characters and mixed case must checksum".
func TestParseAddress_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Address
		wantErr bool
	}{
		{"valid EIP-55 checksum", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", false},
		{"valid EIP-55 checksum 2", "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359", false},
		{"all lowercase skips checksum", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", false},
		{"all uppercase skips checksum", "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", false},
		{"surrounding whitespace trimmed", "  0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed ", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", false},

		{"bad checksum", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", "", true},
		{"empty", "", "", true},
		{"missing prefix", "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", "", true},
		{"too short", "0x5aaeb6053f", "", true},
		{"non hex", "0xzzzeb6053f3e94c9b9a09f33669435e7ef1beaed", "", true},
		{"oversized", "0x" + strings.Repeat("a", 100), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddress_Checksummed(t *testing.T) {
	a := MustParseAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", a.Checksummed())

	roundTrip, err := ParseAddress(a.Checksummed())
	require.NoError(t, err)
	assert.Equal(t, a, roundTrip)
}
