// Package dcp is a client for the Doremi DCP-2000 API: the concrete message
// catalog plus a connection that dispatches commands by name.
package dcp

import (
	"context"
	"io"
	"sync"

	"github.com/danmuck/dcpctl/internal/command"
	"github.com/danmuck/dcpctl/internal/config"
	"github.com/danmuck/dcpctl/internal/protocol/correlation"
	"github.com/danmuck/dcpctl/internal/protocol/klv"
	"github.com/danmuck/dcpctl/internal/transport"
	"github.com/rs/zerolog/log"
)

// Client owns one device stream and serializes every exchange on it.
type Client struct {
	transport command.Transport
	opts      command.Options

	mu    sync.Mutex
	calls map[string]*command.Call
}

// New wraps an established transport. opts.IDs is shared by every command.
func New(t command.Transport, opts command.Options) *Client {
	if opts.IDs == nil {
		opts.IDs = correlation.New()
	}
	return &Client{
		transport: t,
		opts:      opts,
		calls:     make(map[string]*command.Call),
	}
}

// Dial connects to the device named by cfg.
func Dial(ctx context.Context, cfg config.Client, observer command.Observer) (*Client, error) {
	conn, err := transport.Dial(ctx, cfg.Addr(), cfg.DialTimeout)
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", cfg.Addr()).Msg("connected to dcp device")
	return New(conn, command.Options{
		Debug:            cfg.Debug,
		Host:             cfg.Host,
		Port:             cfg.Port,
		CheckCorrelation: cfg.CheckCorrelation,
		Observer:         observer,
	}), nil
}

// Command sends the named request and returns the parsed response.
func (c *Client) Command(name string, args []any, named map[string]any) (*klv.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	call, err := c.call(name)
	if err != nil {
		return nil, err
	}
	return call.SendAndReceive(args, named)
}

func (c *Client) call(name string) (*command.Call, error) {
	if call, ok := c.calls[name]; ok {
		return call, nil
	}
	call, err := command.New(c.transport, Requests(), Responses(), name, c.opts)
	if err != nil {
		return nil, err
	}
	c.calls[name] = call
	return call, nil
}

func (c *Client) Close() error {
	if closer, ok := c.transport.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// CheckResponse reports whether the device answered with status 0.
func CheckResponse(res *klv.Result) bool {
	if res == nil {
		return false
	}
	v, ok := res.Get("response")
	if !ok {
		return false
	}
	return v == int64(0)
}
