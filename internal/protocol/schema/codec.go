package schema

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidValue = errors.New("schema: invalid value")

// Codec converts one field value to and from its wire bytes.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
}

// Uint returns a big-endian unsigned integer codec of the given width.
func Uint(width int) Codec {
	return intCodec{width: width}
}

// Int returns a big-endian two's complement integer codec of the given width.
func Int(width int) Codec {
	return intCodec{width: width, signed: true}
}

type intCodec struct {
	width  int
	signed bool
}

func (c intCodec) Encode(v any) ([]byte, error) {
	bits := uint(c.width * 8)
	var raw uint64
	if c.signed {
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if bits < 64 {
			lo, hi := -(int64(1) << (bits - 1)), int64(1)<<(bits-1)-1
			if n < lo || n > hi {
				return nil, fmt.Errorf("%w: %d overflows int%d", ErrInvalidValue, n, bits)
			}
		}
		raw = uint64(n)
	} else if n, err := toInt64(v); err == nil && n < 0 {
		// Negative values share the signed layout.
		if bits < 64 && n < -(int64(1)<<(bits-1)) {
			return nil, fmt.Errorf("%w: %d overflows uint%d", ErrInvalidValue, n, bits)
		}
		raw = uint64(n)
	} else {
		n, err := toUint64(v)
		if err != nil {
			return nil, err
		}
		if bits < 64 && n > uint64(1)<<bits-1 {
			return nil, fmt.Errorf("%w: %d overflows uint%d", ErrInvalidValue, n, bits)
		}
		raw = n
	}
	var full [8]byte
	binary.BigEndian.PutUint64(full[:], raw)
	out := make([]byte, c.width)
	copy(out, full[8-c.width:])
	return out, nil
}

func (c intCodec) Decode(b []byte) (any, error) {
	if len(b) > 8 {
		return nil, fmt.Errorf("%w: %d bytes exceed 64-bit integer", ErrInvalidValue, len(b))
	}
	var n uint64
	for _, x := range b {
		n = n<<8 | uint64(x)
	}
	if c.signed {
		if len(b) > 0 && len(b) < 8 && b[0]&0x80 != 0 {
			n |= ^uint64(0) << (uint(len(b)) * 8)
		}
		return int64(n), nil
	}
	if n > math.MaxInt64 {
		return n, nil
	}
	return int64(n), nil
}

// UUID is a 16 byte identifier codec.
var UUID Codec = uuidCodec{}

type uuidCodec struct{}

func (uuidCodec) Encode(v any) ([]byte, error) {
	id, err := toUUID(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 16)
	copy(out, id[:])
	return out, nil
}

func (uuidCodec) Decode(b []byte) (any, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return id, nil
}

// UUIDList is a counted list codec: count(4) item_len(4) items.
var UUIDList Codec = uuidListCodec{}

type uuidListCodec struct{}

func (uuidListCodec) Encode(v any) ([]byte, error) {
	var ids []uuid.UUID
	switch t := v.(type) {
	case []uuid.UUID:
		ids = t
	case []string:
		ids = make([]uuid.UUID, 0, len(t))
		for _, s := range t {
			id, err := toUUID(s)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	default:
		return nil, fmt.Errorf("%w: %T is not a uuid list", ErrInvalidValue, v)
	}
	out := make([]byte, 8, 8+16*len(ids))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(ids)))
	binary.BigEndian.PutUint32(out[4:8], 16)
	for _, id := range ids {
		out = append(out, id[:]...)
	}
	return out, nil
}

func (uuidListCodec) Decode(b []byte) (any, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("%w: uuid list header needs 8 bytes, got %d", ErrInvalidValue, len(b))
	}
	count := binary.BigEndian.Uint32(b[0:4])
	size := binary.BigEndian.Uint32(b[4:8])
	if count > 0 && size != 16 {
		return nil, fmt.Errorf("%w: uuid list item length %d", ErrInvalidValue, size)
	}
	if uint64(count)*16 > uint64(len(b)-8) {
		return nil, fmt.Errorf("%w: uuid list of %d items truncated", ErrInvalidValue, count)
	}
	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < int(count); i++ {
		off := 8 + i*16
		var id uuid.UUID
		copy(id[:], b[off:off+16])
		ids = append(ids, id)
	}
	return ids, nil
}

// Text returns a UTF-8 text codec. A positive width NUL pads or truncates
// the encoded value to exactly width bytes. Decoding stops at the first NUL.
func Text(width int) Codec {
	return textCodec{width: width}
}

type textCodec struct {
	width int
}

func (c textCodec) Encode(v any) ([]byte, error) {
	var raw []byte
	switch t := v.(type) {
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	case fmt.Stringer:
		raw = []byte(t.String())
	default:
		return nil, fmt.Errorf("%w: %T is not text", ErrInvalidValue, v)
	}
	if c.width <= 0 {
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	}
	out := make([]byte, c.width)
	copy(out, raw)
	return out, nil
}

func (textCodec) Decode(b []byte) (any, error) {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), nil
}

// Blob passes raw bytes through unchanged.
var Blob Codec = blobCodec{}

type blobCodec struct{}

func (blobCodec) Encode(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return out, nil
	case string:
		return []byte(t), nil
	default:
		return nil, fmt.Errorf("%w: %T is not a byte blob", ErrInvalidValue, v)
	}
}

func (blobCodec) Decode(b []byte) (any, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// AsInt64 reports the integer value of v when v holds a Go integer.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), n <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	default:
		return 0, false
	}
}

func toInt64(v any) (int64, error) {
	if n, ok := AsInt64(v); ok {
		return n, nil
	}
	switch t := v.(type) {
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, t)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: %T is not an integer", ErrInvalidValue, v)
}

func toUint64(v any) (uint64, error) {
	switch t := v.(type) {
	case uint:
		return uint64(t), nil
	case uint64:
		return t, nil
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an unsigned integer", ErrInvalidValue, t)
		}
		return n, nil
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrInvalidValue, n)
	}
	return uint64(n), nil
}

func toUUID(v any) (uuid.UUID, error) {
	switch t := v.(type) {
	case uuid.UUID:
		return t, nil
	case string:
		id, err := uuid.Parse(strings.TrimSpace(t))
		if err != nil {
			return uuid.UUID{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return id, nil
	case []byte:
		id, err := uuid.FromBytes(t)
		if err != nil {
			return uuid.UUID{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return id, nil
	}
	return uuid.UUID{}, fmt.Errorf("%w: %T is not a uuid", ErrInvalidValue, v)
}
