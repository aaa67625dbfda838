// Package klv builds and parses DCP key-length-value frames:
//
//	HEADER(13) | KEY(3) | BER LENGTH | ID(4) | PAYLOAD
//
// The BER length covers the id and the payload.
package klv

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/dcpctl/internal/protocol/ber"
	"github.com/danmuck/dcpctl/internal/protocol/correlation"
	"github.com/danmuck/dcpctl/internal/protocol/schema"
)

// HeaderSize is the width of the fixed registered header.
const HeaderSize = 13

// MaxFrameLength caps the BER length accepted off the wire.
const MaxFrameLength = 64 << 20

// header is the SMPTE registered pack label: object identifier, label size,
// ISO/ORG, SMPTE, fixed length pack, set/pack dictionary, registry version,
// private use, Doremi Labs, DCP-2000 messages, version 1, intra-theater packs.
var header = [HeaderSize]byte{0x06, 0x0E, 0x2B, 0x34, 0x02, 0x05, 0x01, 0x0A, 0x0E, 0x10, 0x01, 0x01, 0x01}

var (
	ErrInvalidHeader   = errors.New("klv: invalid header")
	ErrShortFrame      = errors.New("klv: short frame")
	ErrMissingArgument = errors.New("klv: missing argument")
	ErrLengthMismatch  = errors.New("klv: declared length mismatch")
)

// MissingArgumentError names the first field left without a value.
type MissingArgumentError struct {
	Message string
	Field   string
}

func (e MissingArgumentError) Error() string {
	return fmt.Sprintf("klv: %s: missing argument for field %q", e.Message, e.Field)
}

func (e MissingArgumentError) Is(target error) bool {
	return target == ErrMissingArgument
}

// Header returns a copy of the fixed frame header.
func Header() []byte {
	out := make([]byte, HeaderSize)
	copy(out, header[:])
	return out
}

// Frame is one decoded wire message.
type Frame struct {
	Key         schema.Key
	LengthField []byte
	Length      uint64
	ID          uint32
	Payload     []byte
}

// Bytes re-serializes the frame exactly as received.
func (f Frame) Bytes() []byte {
	lengthField := f.LengthField
	if len(lengthField) == 0 {
		lengthField = ber.EncodeLength(uint64(correlation.Size + len(f.Payload)))
	}
	out := make([]byte, 0, HeaderSize+schema.KeySize+len(lengthField)+correlation.Size+len(f.Payload))
	out = append(out, header[:]...)
	out = append(out, f.Key[:]...)
	out = append(out, lengthField...)
	out = append(out, correlation.Encode(f.ID)...)
	out = append(out, f.Payload...)
	return out
}

// Construct serializes a request for msg. Each field takes its value from
// named when present, otherwise from the next unused positional argument.
func Construct(msg schema.Message, id []byte, args []any, named map[string]any) ([]byte, error) {
	if len(id) != correlation.Size {
		return nil, fmt.Errorf("klv: correlation id must be %d bytes, got %d", correlation.Size, len(id))
	}
	payload := make([]byte, 0, correlation.Size+16*len(msg.Fields))
	payload = append(payload, id...)
	next := 0
	for _, field := range msg.Fields {
		value, ok := named[field.Name]
		if !ok {
			if next >= len(args) {
				return nil, MissingArgumentError{Message: msg.Name, Field: field.Name}
			}
			value = args[next]
			next++
		}
		encoded, err := field.Codec.Encode(value)
		if err != nil {
			return nil, fmt.Errorf("klv: %s: encode field %q: %w", msg.Name, field.Name, err)
		}
		payload = append(payload, encoded...)
	}

	lengthField := ber.EncodeLength(uint64(len(payload)))
	out := make([]byte, 0, HeaderSize+schema.KeySize+len(lengthField)+len(payload))
	out = append(out, header[:]...)
	out = append(out, msg.Key[:]...)
	out = append(out, lengthField...)
	out = append(out, payload...)
	return out, nil
}

// Builder constructs requests with ids drawn from an owned generator.
type Builder struct {
	IDs *correlation.Generator
}

func (b Builder) Construct(msg schema.Message, args []any, named map[string]any) ([]byte, error) {
	return Construct(msg, b.IDs.NextBytes(), args, named)
}

// Parse decodes payload (the bytes after the correlation id) against msg.
func Parse(msg schema.Message, payload []byte) (*Result, error) {
	res := NewResult(len(msg.Fields))
	for _, field := range msg.Fields {
		value, err := field.Codec.Decode(field.Slice(payload))
		if err != nil {
			return nil, fmt.Errorf("klv: %s: decode field %q: %w", msg.Name, field.Name, err)
		}
		res.Set(field.Name, value)
		if text, ok := field.Translate(value); ok {
			res.Set(field.Name+schema.TextSuffix, text)
		}
	}
	return res, nil
}

// ReadFrame reads one frame from r: header, key, BER length, id and payload.
func ReadFrame(r io.Reader) (Frame, error) {
	var head [HeaderSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return Frame{}, fmt.Errorf("klv: read header: %w", err)
	}
	if head != header {
		return Frame{}, fmt.Errorf("%w: % X", ErrInvalidHeader, head[:])
	}

	var key schema.Key
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return Frame{}, fmt.Errorf("klv: read key: %w", err)
	}

	length, lengthField, err := ber.ReadLength(r)
	if err != nil {
		return Frame{}, err
	}
	if length < correlation.Size {
		return Frame{}, fmt.Errorf("%w: length %d below id size", ErrLengthMismatch, length)
	}
	if length > MaxFrameLength {
		return Frame{}, fmt.Errorf("%w: length %d exceeds %d", ErrLengthMismatch, length, MaxFrameLength)
	}

	var id [correlation.Size]byte
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return Frame{}, fmt.Errorf("klv: read id: %w", err)
	}

	payload := make([]byte, length-correlation.Size)
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, fmt.Errorf("klv: read payload: %w", err)
		}
	}

	return Frame{
		Key:         key,
		LengthField: lengthField,
		Length:      length,
		ID:          correlation.Decode(id[:]),
		Payload:     payload,
	}, nil
}

// SplitFrame decodes an in-memory frame. The header is not verified so that
// captured traffic can be inspected as-is. Bytes past the declared length
// are ignored; a frame shorter than declared keeps what is present.
func SplitFrame(b []byte) (Frame, error) {
	if len(b) < HeaderSize+schema.KeySize+1 {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(b))
	}
	key, _ := schema.KeyFromBytes(b[HeaderSize:])
	rest := b[HeaderSize+schema.KeySize:]
	length, consumed, err := ber.DecodeLength(rest)
	if err != nil {
		return Frame{}, err
	}
	if length < correlation.Size {
		return Frame{}, fmt.Errorf("%w: length %d below id size", ErrLengthMismatch, length)
	}
	lengthField := bytes.Clone(rest[:consumed])
	body := rest[consumed:]
	if uint64(len(body)) > length {
		body = body[:length]
	}
	if len(body) < correlation.Size {
		return Frame{}, fmt.Errorf("%w: no correlation id", ErrShortFrame)
	}
	return Frame{
		Key:         key,
		LengthField: lengthField,
		Length:      length,
		ID:          correlation.Decode(body),
		Payload:     bytes.Clone(body[correlation.Size:]),
	}, nil
}
