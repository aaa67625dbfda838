// Package schema describes DCP message layouts: ordered field descriptors
// bound to byte ranges and typed codecs, grouped into keyed catalogs.
package schema

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// KeySize is the width of a command or response key on the wire.
const KeySize = 3

// ToEnd marks a field that runs to the end of the payload.
const ToEnd = math.MaxInt

// UnknownText is the translation used when a decoded value has no entry.
const UnknownText = "unknown value"

// TextSuffix is appended to a field name for its translated entry.
const TextSuffix = "_text"

// Key identifies one request or response message.
type Key [KeySize]byte

// ParseKey parses a 6 character hex key such as "010300".
func ParseKey(s string) (Key, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Key{}, fmt.Errorf("schema: invalid key %q: %w", s, err)
	}
	if len(raw) != KeySize {
		return Key{}, fmt.Errorf("schema: invalid key %q: want %d bytes, got %d", s, KeySize, len(raw))
	}
	var k Key
	copy(k[:], raw)
	return k, nil
}

func MustKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// KeyFromBytes copies the first KeySize bytes of b.
func KeyFromBytes(b []byte) (Key, error) {
	if len(b) < KeySize {
		return Key{}, fmt.Errorf("schema: short key: %d bytes", len(b))
	}
	var k Key
	copy(k[:], b[:KeySize])
	return k, nil
}

func (k Key) String() string {
	return strings.ToUpper(hex.EncodeToString(k[:]))
}

func (k Key) Bytes() []byte {
	out := make([]byte, KeySize)
	copy(out, k[:])
	return out
}

// Field describes one named value of a message.
// Start and End are only used on decode and follow slice-expression
// semantics where negative offsets count back from the end of the payload.
type Field struct {
	Name  string
	Start int
	End   int
	Codec Codec
	Text  map[int64]string
}

// Slice returns the bytes of payload covered by the field.
func (f Field) Slice(payload []byte) []byte {
	n := len(payload)
	start := clampIndex(f.Start, n)
	end := clampIndex(f.End, n)
	if start >= end {
		return payload[:0]
	}
	return payload[start:end]
}

// Translate maps a decoded value through the field's text table.
func (f Field) Translate(v any) (string, bool) {
	if f.Text == nil {
		return "", false
	}
	n, ok := AsInt64(v)
	if !ok {
		return UnknownText, true
	}
	text, found := f.Text[n]
	if !found {
		return UnknownText, true
	}
	return text, true
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			return 0
		}
	}
	if i > n {
		return n
	}
	return i
}

// Message is a named, keyed and ordered field layout.
type Message struct {
	Name   string
	Key    Key
	Fields []Field
}

func (m Message) String() string {
	return fmt.Sprintf("%s (%s)", m.Name, m.Key)
}

// FieldNames lists field names in declaration order.
func (m Message) FieldNames() []string {
	names := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		names = append(names, f.Name)
	}
	return names
}
