package observability

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/dcpctl/internal/command"
	"github.com/danmuck/dcpctl/internal/protocol/ber"
	"github.com/danmuck/dcpctl/internal/protocol/klv"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	commandCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dcpctl",
			Subsystem: "command",
			Name:      "calls_total",
			Help:      "Total DCP command exchanges.",
		},
		[]string{"command", "status"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dcpctl",
			Subsystem: "command",
			Name:      "call_duration_seconds",
			Help:      "DCP command exchange duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commandCalls, commandDuration)
	})
}

// CallObserver records command exchanges. It satisfies command.Observer.
type CallObserver struct{}

func (CallObserver) ObserveCall(name string, err error, elapsed time.Duration) {
	RecordCall(name, err, elapsed)
}

func RecordCall(name string, err error, elapsed time.Duration) {
	RegisterMetrics()
	commandCalls.WithLabelValues(name, StatusLabel(err)).Inc()
	commandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// WriteTextfile dumps the default registry to path in the Prometheus text
// format, suitable for the node exporter textfile collector.
func WriteTextfile(path string) error {
	RegisterMetrics()
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}

// StatusLabel buckets err into a low-cardinality label value.
func StatusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, command.ErrUnknownResponse):
		return "unknown_response"
	case errors.Is(err, command.ErrCorrelationMismatch):
		return "correlation_mismatch"
	case errors.Is(err, command.ErrTransport):
		return "transport_error"
	case errors.Is(err, klv.ErrMissingArgument):
		return "missing_argument"
	case errors.Is(err, ber.ErrMalformedLength):
		return "malformed_length"
	default:
		return "error"
	}
}
