// Package ber encodes and decodes ASN.1 BER definite length fields.
package ber

import (
	"errors"
	"fmt"
	"io"
)

// MaxLengthBytes bounds the long-form byte count accepted on decode.
const MaxLengthBytes = 8

var ErrMalformedLength = errors.New("ber: malformed length")

// EncodeLength returns the shortest BER length field for n.
func EncodeLength(n uint64) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	k := 0
	for v := n; v > 0; v >>= 8 {
		k++
	}
	buf := make([]byte, 1+k)
	buf[0] = 0x80 | byte(k)
	for i := k; i > 0; i-- {
		buf[i] = byte(n)
		n >>= 8
	}
	return buf
}

// DecodeLength parses a BER length field at the start of b and returns the
// length together with the number of bytes the field occupies.
func DecodeLength(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, ErrMalformedLength
	}
	first := b[0]
	if first&0x80 == 0 {
		return uint64(first), 1, nil
	}
	k := int(first & 0x7f)
	if k == 0 || k > MaxLengthBytes {
		return 0, 0, fmt.Errorf("%w: long form with %d length bytes", ErrMalformedLength, k)
	}
	if len(b)-1 < k {
		return 0, 0, fmt.Errorf("%w: want %d length bytes, have %d", ErrMalformedLength, k, len(b)-1)
	}
	return beUint(b[1 : 1+k]), 1 + k, nil
}

// ReadLength reads one BER length field from r. The raw field bytes are
// returned alongside the decoded value.
func ReadLength(r io.Reader) (uint64, []byte, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrMalformedLength, err)
	}
	if first[0]&0x80 == 0 {
		return uint64(first[0]), first[:], nil
	}
	k := int(first[0] & 0x7f)
	if k == 0 || k > MaxLengthBytes {
		return 0, nil, fmt.Errorf("%w: long form with %d length bytes", ErrMalformedLength, k)
	}
	raw := make([]byte, 1+k)
	raw[0] = first[0]
	if _, err := io.ReadFull(r, raw[1:]); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrMalformedLength, err)
	}
	return beUint(raw[1:]), raw, nil
}

func beUint(b []byte) uint64 {
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	return n
}
