package nativemsg

import (
	"fmt"
	"io"

	"github.com/nativedl/dlaccel/pkg/dlengine"
)

// Engine is the subset of dlengine.Coordinator the Dispatcher drives. It
// exists so this package depends on a narrow interface rather than the
// concrete Coordinator, the same seam host.Run/handleRequest used for the
// browser-extension daemon client.
type Engine interface {
	StartDownload(rawURL, referer string) string
	Pause(id string)
	Resume(id string)
	Cancel(id string)
}

// Dispatcher reads command frames from a single inbound stream and routes
// them to an Engine, one at a time, never blocking on the long-running
// download itself - StartDownload returns as soon as the record is
// created.
type Dispatcher struct {
	In     io.Reader
	Sink   dlengine.EventSink
	Engine Engine
}

// NewDispatcher builds a Dispatcher over in, emitting acks/events to sink.
func NewDispatcher(in io.Reader, sink dlengine.EventSink, engine Engine) *Dispatcher {
	return &Dispatcher{In: in, Sink: sink, Engine: engine}
}

// Run processes frames until the inbound stream closes cleanly (returns
// nil) or a transport error occurs (returns non-nil, the caller's cue to
// exit with a non-zero status).
func (d *Dispatcher) Run() error {
	for {
		payload, err := ReadFrame(d.In)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}
		d.dispatchOne(payload)
	}
}

// dispatchOne handles a single decoded frame. A malformed JSON payload is
// dropped with no event emitted: there is no DownloadID to attach an
// error event to, and no well-formed command to retry.
func (d *Dispatcher) dispatchOne(payload []byte) {
	cmd, err := decodeCommand(payload)
	if err != nil {
		return
	}

	switch cmd.Command {
	case "download":
		if cmd.URL == "" {
			d.Sink.Emit(dlengine.NewErrorEventNoID("missing required field: url"))
			return
		}
		d.Engine.StartDownload(cmd.URL, cmd.Referer)

	case "pause":
		if cmd.ID == "" {
			d.Sink.Emit(dlengine.NewErrorEventNoID("missing required field: id"))
			return
		}
		d.Engine.Pause(cmd.ID)

	case "resume":
		if cmd.ID == "" {
			d.Sink.Emit(dlengine.NewErrorEventNoID("missing required field: id"))
			return
		}
		d.Engine.Resume(cmd.ID)

	case "cancel":
		if cmd.ID == "" {
			d.Sink.Emit(dlengine.NewErrorEventNoID("missing required field: id"))
			return
		}
		d.Engine.Cancel(cmd.ID)

	default:
		d.Sink.Emit(dlengine.NewErrorEventNoID(fmt.Sprintf("Unknown command: %s", cmd.Command)))
	}
}
