package klv

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/dcpctl/internal/protocol/ber"
	"github.com/danmuck/dcpctl/internal/protocol/correlation"
	"github.com/danmuck/dcpctl/internal/protocol/schema"
	"github.com/google/uuid"
)

func sampleRequest() schema.Message {
	return schema.Message{
		Name: "Sample",
		Key:  schema.MustKey("AABBCC"),
		Fields: []schema.Field{
			{Name: "a", Codec: schema.Int(4)},
			{Name: "b", Codec: schema.Int(1)},
		},
	}
}

func TestHeaderConstant(t *testing.T) {
	want, _ := hex.DecodeString("060E2B340205010A0E10010101")
	if !bytes.Equal(Header(), want) {
		t.Fatalf("unexpected header: %X", Header())
	}
}

func TestConstructNamedArgs(t *testing.T) {
	ids := correlation.New()
	out, err := Builder{IDs: ids}.Construct(sampleRequest(), nil, map[string]any{"a": 42, "b": 7})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	payload := []byte{0, 0, 0, 1, 0, 0, 0, 42, 7}
	want := append(Header(), 0xAA, 0xBB, 0xCC)
	want = append(want, ber.EncodeLength(uint64(len(payload)))...)
	want = append(want, payload...)
	if !bytes.Equal(out, want) {
		t.Fatalf("frame mismatch:\n got=%X\nwant=%X", out, want)
	}
}

func TestConstructMixesNamedAndPositional(t *testing.T) {
	id := correlation.Encode(5)
	out, err := Construct(sampleRequest(), id, []any{9}, map[string]any{"a": 1})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	tail := out[len(out)-5:]
	if !bytes.Equal(tail, []byte{0, 0, 0, 1, 9}) {
		t.Fatalf("unexpected payload body: %X", tail)
	}
}

func TestConstructMissingArgument(t *testing.T) {
	_, err := Construct(sampleRequest(), correlation.Encode(1), []any{1}, nil)
	if !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument, got %v", err)
	}
	var missing MissingArgumentError
	if !errors.As(err, &missing) || missing.Field != "b" {
		t.Fatalf("unexpected missing argument error: %+v", missing)
	}
}

func TestConstructEncodeError(t *testing.T) {
	_, err := Construct(sampleRequest(), correlation.Encode(1), []any{"nope", 1}, nil)
	if !errors.Is(err, schema.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestConstructLongFormLength(t *testing.T) {
	msg := schema.Message{
		Name:   "Blob",
		Key:    schema.MustKey("010101"),
		Fields: []schema.Field{{Name: "data", Codec: schema.Blob}},
	}
	out, err := Construct(msg, correlation.Encode(1), []any{make([]byte, 200)}, nil)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	lengthField := out[HeaderSize+schema.KeySize : HeaderSize+schema.KeySize+2]
	if !bytes.Equal(lengthField, []byte{0x81, 204}) {
		t.Fatalf("unexpected length field: %X", lengthField)
	}
	f, err := SplitFrame(out)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if f.Length != 204 || len(f.Payload) != 200 || f.ID != 1 {
		t.Fatalf("unexpected frame: length=%d payload=%d id=%d", f.Length, len(f.Payload), f.ID)
	}
}

func TestConstructParseRoundTrip(t *testing.T) {
	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	request := schema.Message{
		Name: "Info",
		Key:  schema.MustKey("010400"),
		Fields: []schema.Field{
			{Name: "cpl_uuid", Codec: schema.UUID},
			{Name: "storage", Codec: schema.Uint(1)},
			{Name: "title", Codec: schema.Text(8)},
			{Name: "response", Codec: schema.Uint(1)},
		},
	}
	response := schema.Message{
		Name: "Info",
		Key:  request.Key,
		Fields: []schema.Field{
			{Name: "cpl_uuid", Start: 0, End: 16, Codec: schema.UUID},
			{Name: "storage", Start: 16, End: 17, Codec: schema.Uint(1), Text: map[int64]string{1: "local", 2: "remote"}},
			{Name: "title", Start: 17, End: 25, Codec: schema.Text(8)},
			{Name: "response", Start: -1, End: schema.ToEnd, Codec: schema.Uint(1)},
		},
	}

	out, err := Construct(request, correlation.Encode(77), []any{id, 2, "Feature", 0}, nil)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	f, err := ReadFrame(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if f.ID != 77 || f.Key != request.Key {
		t.Fatalf("unexpected frame id=%d key=%s", f.ID, f.Key)
	}
	if !bytes.Equal(f.Bytes(), out) {
		t.Fatalf("frame re-serialization mismatch")
	}

	res, err := Parse(response, f.Payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	wantKeys := []string{"cpl_uuid", "storage", "storage_text", "title", "response"}
	keys := res.Keys()
	if len(keys) != len(wantKeys) {
		t.Fatalf("unexpected keys: %v", keys)
	}
	for i := range wantKeys {
		if keys[i] != wantKeys[i] {
			t.Fatalf("key order mismatch: got %v want %v", keys, wantKeys)
		}
	}
	if v, _ := res.Get("cpl_uuid"); v != id {
		t.Fatalf("uuid mismatch: %v", v)
	}
	if v, _ := res.Get("storage"); v != int64(2) {
		t.Fatalf("storage mismatch: %v", v)
	}
	if v, _ := res.Get("storage_text"); v != "remote" {
		t.Fatalf("storage_text mismatch: %v", v)
	}
	if v, _ := res.Get("title"); v != "Feature" {
		t.Fatalf("title mismatch: %v", v)
	}
	if v, _ := res.Get("response"); v != int64(0) {
		t.Fatalf("response mismatch: %v", v)
	}
	if _, ok := res.Get("title_text"); ok {
		t.Fatalf("unexpected text entry for untranslated field")
	}
}

func TestParseUnknownTranslation(t *testing.T) {
	msg := schema.Message{
		Name:   "Kind",
		Fields: []schema.Field{{Name: "kind", Start: 0, End: 1, Codec: schema.Uint(1), Text: map[int64]string{1: "Feature"}}},
	}
	res, err := Parse(msg, []byte{42})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, _ := res.Get("kind_text"); v != schema.UnknownText {
		t.Fatalf("expected %q, got %v", schema.UnknownText, v)
	}
}

func TestReadFrameInvalidHeader(t *testing.T) {
	out, err := Construct(sampleRequest(), correlation.Encode(1), []any{1, 2}, nil)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	out[0] = 0xFF
	if _, err := ReadFrame(bytes.NewReader(out)); !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	out, err := Construct(sampleRequest(), correlation.Encode(1), []any{1, 2}, nil)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	_, err = ReadFrame(bytes.NewReader(out[:len(out)-2]))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestReadFrameMalformedLength(t *testing.T) {
	buf := append(Header(), 0x01, 0x02, 0x00, 0x82, 0x01)
	if _, err := ReadFrame(bytes.NewReader(buf)); !errors.Is(err, ber.ErrMalformedLength) {
		t.Fatalf("expected ErrMalformedLength, got %v", err)
	}
}

func TestReadFrameLengthBelowID(t *testing.T) {
	buf := append(Header(), 0x01, 0x02, 0x00, 0x02, 0x00, 0x00)
	if _, err := ReadFrame(bytes.NewReader(buf)); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestReadFrameLengthTooLarge(t *testing.T) {
	buf := append(Header(), 0xAA, 0xBB, 0xCC, 0x88, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x01)
	if _, err := ReadFrame(bytes.NewReader(buf)); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	buf = append(Header(), 0xAA, 0xBB, 0xCC)
	buf = append(buf, ber.EncodeLength(MaxFrameLength+1)...)
	buf = append(buf, 0x00, 0x00, 0x00, 0x01)
	if _, err := ReadFrame(bytes.NewReader(buf)); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch above cap, got %v", err)
	}
}

func TestSplitFrameLengthBelowID(t *testing.T) {
	buf := append(Header(), 0xAA, 0xBB, 0xCC, 0x02, 0x00, 0x00, 0x00, 0x01, 0x09, 0x09)
	if _, err := SplitFrame(buf); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestSplitFrameTruncatedID(t *testing.T) {
	buf := append(Header(), 0xAA, 0xBB, 0xCC, 0x06, 0x00, 0x00)
	if _, err := SplitFrame(buf); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
}

func TestSplitFrameShort(t *testing.T) {
	if _, err := SplitFrame(Header()); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
}

func TestResultOrderAndOverwrite(t *testing.T) {
	r := NewResult(2)
	r.Set("b", 1)
	r.Set("a", 2)
	r.Set("b", 3)
	if keys := r.Keys(); len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("unexpected keys: %v", keys)
	}
	if r.String() != "b=3 a=2" {
		t.Fatalf("unexpected string: %q", r.String())
	}
}
