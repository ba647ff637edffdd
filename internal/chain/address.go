package chain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the byte length of an account address.
const AddressLength = 20

// Address is a 20-byte account address.
// The zero value is the null address.
type Address [AddressLength]byte

// NullAddress is the all-zero address.
var NullAddress Address

// IsNull reports whether the address is the all-zero address.
func (a Address) IsNull() bool {
	return a == NullAddress
}

// String returns the address as lowercase hex with a 0x prefix.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// ParseAddress parses a 0x-prefixed hex address.
// The hex digits are case-insensitive; the parsed form is 20 bytes exactly.
func ParseAddress(s string) (Address, error) {
	var a Address
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return a, fmt.Errorf("parse address %q: missing 0x prefix", s)
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return a, fmt.Errorf("parse address %q: %w", s, err)
	}
	if len(raw) != AddressLength {
		return a, fmt.Errorf("parse address %q: got %d bytes, want %d", s, len(raw), AddressLength)
	}
	copy(a[:], raw)
	return a, nil
}

// MustAddress is like ParseAddress but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Hash is a 32-byte code hash (SHA-256 of the deployed code).
type Hash [32]byte

// String returns the hash as lowercase hex with a 0x prefix.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// ParseHash parses a 0x-prefixed hex hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return h, fmt.Errorf("parse hash %q: missing 0x prefix", s)
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return h, fmt.Errorf("parse hash %q: %w", s, err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("parse hash %q: got %d bytes, want %d", s, len(raw), len(h))
	}
	copy(h[:], raw)
	return h, nil
}
