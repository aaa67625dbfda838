package command

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/danmuck/dcpctl/internal/protocol/correlation"
	"github.com/danmuck/dcpctl/internal/protocol/klv"
	"github.com/danmuck/dcpctl/internal/protocol/schema"
	"github.com/danmuck/dcpctl/internal/protocol/trace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Transport is a blocking byte stream to the device.
type Transport interface {
	Send(b []byte) error
	// Receive returns exactly n bytes or an error.
	Receive(n int) ([]byte, error)
}

// Observer is notified once per SendAndReceive.
type Observer interface {
	ObserveCall(command string, err error, elapsed time.Duration)
}

type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting_response"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Options struct {
	Debug bool
	Host  string
	Port  int
	// IDs is shared by every call on the same device. A private generator
	// is created when nil.
	IDs    *correlation.Generator
	Logger *zerolog.Logger
	// CheckCorrelation rejects responses whose id differs from the last
	// request id.
	CheckCorrelation bool
	Observer         Observer
}

// Call is one request definition bound to a transport.
type Call struct {
	transport Transport
	requests  *schema.Catalog
	responses *schema.Catalog
	request   schema.Message
	opts      Options
	ids       *correlation.Generator
	logger    zerolog.Logger

	mu     sync.Mutex
	state  State
	lastID uint32
}

// New resolves keyOrName in requests. An unknown command is a configuration
// error and wraps both ErrUnknownCommand and schema.ErrNotFound.
func New(t Transport, requests, responses *schema.Catalog, keyOrName string, opts Options) (*Call, error) {
	request, err := requests.Get(keyOrName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownCommand, err)
	}
	ids := opts.IDs
	if ids == nil {
		ids = correlation.New()
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Call{
		transport: t,
		requests:  requests,
		responses: responses,
		request:   request,
		opts:      opts,
		ids:       ids,
		logger:    logger.With().Str("command", request.Name).Logger(),
	}, nil
}

func (c *Call) Name() string {
	return c.request.Name
}

func (c *Call) Request() schema.Message {
	return c.request
}

func (c *Call) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send builds the request frame and hands it to the transport in one write.
func (c *Call) Send(args []any, named map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(args, named)
}

// Receive reads and parses the next response frame.
func (c *Call) Receive() (*klv.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receive()
}

// SendAndReceive performs one full exchange.
func (c *Call) SendAndReceive(args []any, named map[string]any) (*klv.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := time.Now()
	res, err := c.exchange(args, named)
	if c.opts.Observer != nil {
		c.opts.Observer.ObserveCall(c.request.Name, err, time.Since(start))
	}
	return res, err
}

func (c *Call) exchange(args []any, named map[string]any) (*klv.Result, error) {
	if err := c.send(args, named); err != nil {
		return nil, err
	}
	return c.receive()
}

func (c *Call) send(args []any, named map[string]any) error {
	id := c.ids.Next()
	frame, err := klv.Construct(c.request, correlation.Encode(id), args, named)
	if err != nil {
		return err
	}
	if err := c.transport.Send(frame); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	c.lastID = id
	c.state = StateAwaitingResponse

	if c.opts.Debug {
		c.logger.Debug().
			Str("host", c.opts.Host).
			Int("port", c.opts.Port).
			Uint32("id", id).
			Msgf("request sent\n%s", c.explain(frame))
	}
	return nil
}

func (c *Call) receive() (*klv.Result, error) {
	frame, err := klv.ReadFrame(transportReader{c.transport})
	if err != nil {
		return nil, err
	}
	c.state = StateIdle

	response, err := c.responses.GetByKey(frame.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownResponse, err)
	}

	if c.opts.Debug {
		result := "---"
		if n := len(frame.Payload); n > 0 {
			result = fmt.Sprintf("%d", frame.Payload[n-1])
		}
		c.logger.Debug().
			Str("host", c.opts.Host).
			Int("port", c.opts.Port).
			Str("response", response.Name).
			Uint32("id", frame.ID).
			Str("result", result).
			Msgf("response received\n%s", c.explain(frame.Bytes()))
	}

	if c.opts.CheckCorrelation && frame.ID != c.lastID {
		return nil, fmt.Errorf("%w: sent %d, received %d", ErrCorrelationMismatch, c.lastID, frame.ID)
	}

	return klv.Parse(response, frame.Payload)
}

func (c *Call) explain(frame []byte) string {
	out, err := trace.Explain(frame, c.requests, c.responses)
	if err != nil {
		return fmt.Sprintf("<unexplained frame: %v>", err)
	}
	return out
}

// transportReader adapts Transport to io.Reader so each ReadFull maps to
// exactly one Receive of the remaining segment size.
type transportReader struct {
	t Transport
}

func (r transportReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b, err := r.t.Receive(len(p))
	if err != nil {
		return 0, &TransportError{Op: "receive", Err: err}
	}
	if len(b) == 0 {
		return 0, &TransportError{Op: "receive", Err: io.ErrUnexpectedEOF}
	}
	return copy(p, b), nil
}
