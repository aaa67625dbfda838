// Package transport is the TCP socket used to talk to a DCP device.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultPort is the device API port.
const DefaultPort = 11730

var ErrClosed = errors.New("transport: closed")

// Conn is a blocking send/receive-n stream over a net.Conn.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader

	mu     sync.Mutex
	closed bool
}

func New(c net.Conn) *Conn {
	return &Conn{raw: c, reader: bufio.NewReader(c)}
}

// Dial connects to addr. A missing port defaults to DefaultPort and a zero
// timeout leaves the dial bounded by ctx only.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		port = strconv.Itoa(DefaultPort)
	}
	addr = net.JoinHostPort(host, port)

	d := net.Dialer{Timeout: timeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	log.Debug().Str("addr", addr).Msg("transport connected")
	return New(c), nil
}

// Send writes b in full.
func (c *Conn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	for len(b) > 0 {
		n, err := c.raw.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// Receive blocks until exactly n bytes are read. A stream closed early
// yields io.ErrUnexpectedEOF (or io.EOF when nothing was read).
func (c *Conn) Receive(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("transport: negative read size %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.raw.Close()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
