// Package trace renders DCP frames as labeled multi-line wire dumps.
package trace

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/danmuck/dcpctl/internal/protocol/correlation"
	"github.com/danmuck/dcpctl/internal/protocol/klv"
	"github.com/danmuck/dcpctl/internal/protocol/schema"
)

// Frames longer than ElideAbove bytes have their payload hex cut to
// MaxDataHex characters and suffixed with "...".
const (
	ElideAbove = 40
	MaxDataHex = 40
)

const ruler = "         0.......4.......8.......12......16......20......24......28......32"

// Explain decomposes frame and resolves its key against requests first and
// responses second. The lookup error of the response catalog is returned
// when neither knows the key.
func Explain(frame []byte, requests, responses *schema.Catalog) (string, error) {
	f, err := klv.SplitFrame(frame)
	if err != nil {
		return "", err
	}
	name, err := KeyName(f.Key, requests, responses)
	if err != nil {
		return "", err
	}

	headerHex := hexString(frame[:klv.HeaderSize])
	keyHex := f.Key.String()
	berHex := hexString(f.LengthField)
	idHex := hexString(correlation.Encode(f.ID))
	dataHex := hexString(f.Payload)
	if len(frame) > ElideAbove {
		if len(dataHex) > MaxDataHex {
			dataHex = dataHex[:MaxDataHex]
		}
		dataHex += "..."
	}

	var b strings.Builder
	b.WriteString(ruler + "\n")
	fmt.Fprintf(&b, "Header : %s\n", headerHex)
	fmt.Fprintf(&b, "Key    : %s (%s)\n", keyHex, name)
	fmt.Fprintf(&b, "Ber    : %s (%d)\n", berHex, f.Length)
	fmt.Fprintf(&b, "ID     : %s (%d)\n", idHex, f.ID)
	fmt.Fprintf(&b, "Data   : %s\n", dataHex)
	fmt.Fprintf(&b, "Command: %s%s%s%s%s", headerHex, keyHex, berHex, idHex, dataHex)
	return b.String(), nil
}

// KeyName labels key as "<name> Request" or "<name> Response".
func KeyName(key schema.Key, requests, responses *schema.Catalog) (string, error) {
	if requests != nil {
		if m, err := requests.GetByKey(key); err == nil {
			return m.Name + " Request", nil
		}
	}
	if responses == nil {
		return "", schema.NotFoundError{Kind: "response", Lookup: key.String()}
	}
	m, err := responses.GetByKey(key)
	if err != nil {
		return "", err
	}
	return m.Name + " Response", nil
}

func hexString(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}
