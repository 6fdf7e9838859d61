package chat

import (
	"sync/atomic"

	"github.com/maxverstappen583/Tribute/telemetry"
)

// Outcome describes how a reply reached the platform.
type Outcome int

const (
	// Delivered means the primary send succeeded.
	Delivered Outcome = iota
	// DeliveredViaFallback means the primary send failed and the single retry path succeeded.
	DeliveredViaFallback
	// Dropped means every send path failed.
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case DeliveredViaFallback:
		return "delivered_via_fallback"
	case Dropped:
		return "dropped"
	}
	return "unknown"
}

// SendResult reports the outcome of one reply. Err holds the primary failure
// for DeliveredViaFallback and all failures for Dropped.
type SendResult struct {
	Outcome Outcome
	Err     error
}

// OK reports whether the reply reached the platform.
func (r SendResult) OK() bool { return r.Outcome != Dropped }

// State is the connection state of a chat client.
type State int32

const (
	Disconnected State = iota
	Connecting
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// stateBox holds a client's State and mirrors it into the ready gauge.
type stateBox struct {
	platform string
	v        atomic.Int32
}

func (b *stateBox) get() State { return State(b.v.Load()) }

func (b *stateBox) set(s State) {
	b.v.Store(int32(s))
	telemetry.SetBotReady(b.platform, s == Ready)
}
