// Package correlation generates request identifiers for outgoing frames.
package correlation

import (
	"encoding/binary"
	"sync"
)

// Modulus is the wrap point of the identifier counter.
const Modulus = 60000

// Size is the encoded identifier width on the wire.
const Size = 4

// Generator is a cycling request id counter. The zero value starts at 0 and
// is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	current uint32
}

func New() *Generator {
	return &Generator{}
}

// Next advances the counter and returns the new id in [0, Modulus).
func (g *Generator) Next() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = (g.current + 1) % Modulus
	return g.current
}

// NextBytes advances the counter and returns the id as 4 big-endian bytes.
func (g *Generator) NextBytes() []byte {
	return Encode(g.Next())
}

// Peek returns the last issued id without advancing.
func (g *Generator) Peek() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func Encode(id uint32) []byte {
	buf := make([]byte, Size)
	binary.BigEndian.PutUint32(buf, id)
	return buf
}

func Decode(b []byte) uint32 {
	if len(b) < Size {
		return 0
	}
	return binary.BigEndian.Uint32(b[:Size])
}
