package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "escrowd/pkg/domain-errors"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    Amount
		wantErr bool
	}{
		{"100", Tokens(100), false},
		{"0.000001", 1, false},
		{"12.345678", 12_345_678, false},
		{"1000.5", 1_000_500_000, false},

		{"0", 0, true},
		{"-5", 0, true},
		{"0.0000001", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"99999999999999999999", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
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

func TestAmount_ExceedsTokens(t *testing.T) {
	assert.False(t, Tokens(1000).ExceedsTokens(1000), "ceiling is inclusive")
	assert.True(t, (Tokens(1000) + 1).ExceedsTokens(1000))
	assert.Equal(t, "1000.000001", (Tokens(1000) + 1).String())
}

func TestParseEscrowID(t *testing.T) {
	id, err := ParseEscrowID("42")
	require.NoError(t, err)
	assert.Equal(t, EscrowID(42), id)

	for _, bad := range []string{"", "0", "-1", "abc", "1.5"} {
		_, err := ParseEscrowID(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
