package reconciler

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/nerrad567/lockwise-core/internal/protocol"
	"github.com/nerrad567/lockwise-core/internal/transport"
)

// ErrInboundClosed is returned by Run when the inbound channel is closed.
var ErrInboundClosed = errors.New("reconciler: inbound channel closed")

// DispatchStats are the dispatcher's lifetime counters.
type DispatchStats struct {
	Processed      uint64   `json:"processed"`
	DecodeFailures uint64   `json:"decode_failures"`
	Reconciler     Counters `json:"reconciler"`
}

// Dispatcher is the single consumer of inbound status payloads. It
// classifies each payload and hands it to the Reconciler in arrival order.
type Dispatcher struct {
	reconciler *Reconciler
	logger     Logger

	processed      atomic.Uint64
	decodeFailures atomic.Uint64
}

// NewDispatcher creates a Dispatcher feeding r.
func NewDispatcher(r *Reconciler) *Dispatcher {
	return &Dispatcher{
		reconciler: r,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// Run consumes in until ctx is cancelled or in is closed. Messages are
// processed one at a time; Run must not be called concurrently.
func (d *Dispatcher) Run(ctx context.Context, in <-chan transport.Inbound) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return ErrInboundClosed
			}
			d.Handle(ctx, msg)
		}
	}
}

// Handle classifies and applies a single inbound payload.
func (d *Dispatcher) Handle(ctx context.Context, in transport.Inbound) {
	d.processed.Add(1)

	msg, err := protocol.Classify(in.Payload)
	if err != nil {
		d.decodeFailures.Add(1)
		d.logger.Warn("discarding status payload", "device_id", in.DeviceID, "error", err)
		return
	}
	d.reconciler.Apply(ctx, in.DeviceID, msg)
}

// Stats returns a snapshot of the dispatcher and reconciler counters.
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Processed:      d.processed.Load(),
		DecodeFailures: d.decodeFailures.Load(),
		Reconciler:     d.reconciler.Counters(),
	}
}
