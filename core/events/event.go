package events

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Event is the flattened notification record handed to subscribers. Attribute
// values are strings so the payload can be logged or indexed without knowing
// the concrete event shape.
type Event struct {
	Type       string
	Attributes map[string]string
}

// Typed is implemented by every concrete event in this package.
type Typed interface {
	EventType() string
	Event() *Event
}

// Emitter receives engine events. Emission happens before the corresponding
// external token transfer executes, so subscribers never observe a transfer
// whose bookkeeping has not been recorded.
type Emitter interface {
	Emit(evt Typed)
}

// Recorder is an Emitter that retains every event in order. It backs tests and
// simple in-process subscribers.
type Recorder struct {
	Events []Typed
}

func (r *Recorder) Emit(evt Typed) {
	r.Events = append(r.Events, evt)
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func formatAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
