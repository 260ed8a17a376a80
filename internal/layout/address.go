// Package layout decodes fixed-offset Solana account data.
package layout

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// AddressSize is the length of a Solana public key in bytes.
const AddressSize = 32

// ErrMalformedLayout is returned when a buffer is too short for the requested field.
var ErrMalformedLayout = errors.New("malformed account layout")

// EncodeAddress renders raw bytes as base58. Every leading zero byte becomes a
// leading '1', so 32 zero bytes encode to 32 '1' characters.
func EncodeAddress(b []byte) string {
	return base58.Encode(b)
}

// DecodeAddress parses a base58 address into raw bytes.
func DecodeAddress(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", s, err)
	}
	return b, nil
}

// ReadAddress returns the base58 address stored in buf[offset:offset+32].
func ReadAddress(buf []byte, offset int) (string, error) {
	if err := checkWindow(buf, offset, AddressSize); err != nil {
		return "", err
	}
	return EncodeAddress(buf[offset : offset+AddressSize]), nil
}

// ReadU64 returns the little-endian uint64 stored at offset.
func ReadU64(buf []byte, offset int) (uint64, error) {
	if err := checkWindow(buf, offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[offset : offset+8]), nil
}

func checkWindow(buf []byte, offset, size int) error {
	if offset < 0 || offset+size > len(buf) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformedLayout, size, offset, len(buf))
	}
	return nil
}
