package nativemsg

import (
	"io"
	"sync"

	"github.com/nativedl/dlaccel/pkg/dlengine"
)

// Emitter serializes dlengine.Event values onto an outbound byte stream,
// implementing dlengine.EventSink. All outbound frames funnel through a
// single mutex-guarded writer so that the length prefix and payload of
// one frame are never interleaved with another, matching the
// single-writer discipline warpdl's daemon protocol uses for its
// response stream.
type Emitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEmitter wraps w as an Emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit encodes and writes one event frame. Encode errors are swallowed -
// an Event the engine considers well-formed can only fail to marshal due
// to a programming error, and there is no useful recovery at this layer.
func (e *Emitter) Emit(ev dlengine.Event) {
	payload, err := EncodeEvent(ev)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = WriteFrame(e.w, payload)
}

var _ dlengine.EventSink = (*Emitter)(nil)
