package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress_Roundtrip(t *testing.T) {
	const hex = "0x00000000000000000000000000000000000000ab"
	a, err := ParseAddress(hex)
	require.NoError(t, err)
	assert.Equal(t, hex, a.String())
	assert.False(t, a.IsNull())
}

func TestParseAddress_CaseInsensitive(t *testing.T) {
	lower, err := ParseAddress("0x00000000000000000000000000000000000000ab")
	require.NoError(t, err)
	upper, err := ParseAddress("0X00000000000000000000000000000000000000AB")
	require.NoError(t, err)
	assert.Equal(t, lower, upper)
	assert.Equal(t, "0x00000000000000000000000000000000000000ab", upper.String(),
		"the rendered form is always lowercase")
}

func TestParseAddress_Invalid(t *testing.T) {
	cases := []string{
		"",
		"00000000000000000000000000000000000000ab", // no prefix
		"0x00ab", // too short
		"0x000000000000000000000000000000000000000000", // 21 bytes
	}
	for _, in := range cases {
		_, err := ParseAddress(in)
		assert.Error(t, err, "input %q", in)
	}

	_, err := ParseAddress("0x00000000000000000000000000000000000000zz")
	assert.Error(t, err, "non-hex digits")
}

func TestNullAddress(t *testing.T) {
	assert.True(t, NullAddress.IsNull())
	assert.Equal(t, "0x0000000000000000000000000000000000000000", NullAddress.String())
}

func TestMustAddress_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustAddress("bogus") })
}

func TestParseHash_Roundtrip(t *testing.T) {
	const hex = "0x00000000000000000000000000000000000000000000000000000000000000ff"
	h, err := ParseHash(hex)
	require.NoError(t, err)
	assert.Equal(t, hex, h.String())

	_, err = ParseHash("0x00ff")
	assert.Error(t, err, "wrong length")
	_, err = ParseHash("no-prefix")
	assert.Error(t, err)
}
