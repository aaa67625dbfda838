package trace

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/dcpctl/internal/protocol/correlation"
	"github.com/danmuck/dcpctl/internal/protocol/klv"
	"github.com/danmuck/dcpctl/internal/protocol/schema"
	"github.com/danmuck/dcpctl/internal/testutil/testlog"
)

func catalogs(t *testing.T) (*schema.Catalog, *schema.Catalog) {
	t.Helper()
	requests := schema.MustCatalog("request", schema.Message{
		Name:   "Echo",
		Key:    schema.MustKey("AABBCC"),
		Fields: []schema.Field{{Name: "data", Codec: schema.Blob}},
	})
	responses := schema.MustCatalog("response", schema.Message{
		Name:   "Echo",
		Key:    schema.MustKey("AABBCD"),
		Fields: []schema.Field{{Name: "data", Start: 0, End: schema.ToEnd, Codec: schema.Blob}},
	})
	return requests, responses
}

func TestExplainShortFrameUnmodified(t *testing.T) {
	testlog.Start(t)
	requests, responses := catalogs(t)
	msg, _ := requests.Get("Echo")
	frame, err := klv.Construct(msg, correlation.Encode(3), []any{[]byte{0x01, 0x02}}, nil)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	out, err := Explain(frame, requests, responses)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	for _, want := range []string{
		"Header : 060E2B340205010A0E10010101\n",
		"Key    : AABBCC (Echo Request)\n",
		"Ber    : 06 (6)\n",
		"ID     : 00000003 (3)\n",
		"Data   : 0102\n",
		"Command: 060E2B340205010A0E10010101AABBCC06000000030102",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.HasSuffix(out, "...") {
		t.Fatalf("short frame should not be truncated:\n%s", out)
	}
}

func TestExplainTruncatesLongPayload(t *testing.T) {
	testlog.Start(t)
	requests, responses := catalogs(t)
	msg, _ := responses.Get("Echo")
	frame, err := klv.Construct(msg, correlation.Encode(9), []any{make([]byte, 32)}, nil)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	out, err := Explain(frame, requests, responses)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !strings.Contains(out, "(Echo Response)") {
		t.Fatalf("expected response name:\n%s", out)
	}
	if !strings.HasSuffix(out, "...") {
		t.Fatalf("expected truncated output:\n%s", out)
	}
	if !strings.Contains(out, "Data   : "+strings.Repeat("0", MaxDataHex)+"...\n") {
		t.Fatalf("unexpected data line:\n%s", out)
	}
}

func TestExplainElidesByFrameSize(t *testing.T) {
	testlog.Start(t)
	requests, responses := catalogs(t)
	msg, _ := requests.Get("Echo")
	// 13 + 3 + 1 + 4 + 20 = 41 bytes, payload hex exactly MaxDataHex.
	frame, err := klv.Construct(msg, correlation.Encode(1), []any{make([]byte, 20)}, nil)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if len(frame) != ElideAbove+1 {
		t.Fatalf("frame size: %d", len(frame))
	}
	out, err := Explain(frame, requests, responses)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !strings.Contains(out, "Data   : "+strings.Repeat("0", MaxDataHex)+"...\n") {
		t.Fatalf("unexpected data line:\n%s", out)
	}

	// 40 bytes stays intact.
	frame, err = klv.Construct(msg, correlation.Encode(1), []any{make([]byte, 19)}, nil)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	out, err = Explain(frame, requests, responses)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if strings.HasSuffix(out, "...") {
		t.Fatalf("40-byte frame should not be elided:\n%s", out)
	}
}

func TestExplainMalformedLength(t *testing.T) {
	testlog.Start(t)
	requests, responses := catalogs(t)
	frame := append(klv.Header(), 0xAA, 0xBB, 0xCC, 0x02, 0x00, 0x00, 0x00, 0x01, 0x09, 0x09)
	if _, err := Explain(frame, requests, responses); !errors.Is(err, klv.ErrLengthMismatch) {
		t.Fatalf("expected length mismatch, got %v", err)
	}
}

func TestExplainUnknownKey(t *testing.T) {
	testlog.Start(t)
	requests, responses := catalogs(t)
	unknown := schema.Message{Name: "Ghost", Key: schema.MustKey("FFFFFF")}
	frame, err := klv.Construct(unknown, correlation.Encode(1), nil, nil)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	_, err = Explain(frame, requests, responses)
	if !errors.Is(err, schema.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
