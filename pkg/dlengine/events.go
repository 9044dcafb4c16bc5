package dlengine

// Event is one outbound notification about a download's progress or
// lifecycle. Zero-value fields that don't apply to a given Kind are
// simply left unset; EventSink implementations decide how to encode that
// (typically: omit from JSON).
type Event struct {
	Kind       string // "started" | "progress" | "complete" | "error" | "paused" | "resumed" | "cancelled"
	ID         string
	Filename   string
	Percent    int
	Speed      string
	Size       int64
	Downloaded int64
	File       string
	Error      string
}

// EventSink receives events from the Coordinator and the Dispatcher, in a
// fixed per-ID order: started, then zero-or-more progress/paused/resumed,
// then exactly one terminal event. Events for
// different IDs may interleave freely; a sink implementation must not
// reorder events for the same ID relative to the order Emit was called.
type EventSink interface {
	Emit(Event)
}

// NewStartedEvent builds the started{id} ack for a download command.
func NewStartedEvent(id string) Event {
	return Event{Kind: "started", ID: id}
}

// NewPausedEvent builds the paused{id} ack for a pause command.
func NewPausedEvent(id string) Event {
	return Event{Kind: "paused", ID: id}
}

// NewResumedEvent builds the resumed{id} ack for a resume command.
func NewResumedEvent(id string) Event {
	return Event{Kind: "resumed", ID: id}
}

// NewCancelledEvent builds the cancelled{id} terminal event.
func NewCancelledEvent(id string) Event {
	return Event{Kind: "cancelled", ID: id}
}

// NewErrorEvent builds an error event tied to a known DownloadID.
func NewErrorEvent(id string, err error) Event {
	return Event{Kind: "error", ID: id, Error: err.Error()}
}

// NewErrorEventMsg is NewErrorEvent without needing an error value.
func NewErrorEventMsg(id, msg string) Event {
	return Event{Kind: "error", ID: id, Error: msg}
}

// NewErrorEventNoID builds an error event for failures detected before a
// DownloadID exists: malformed commands, missing required fields.
func NewErrorEventNoID(msg string) Event {
	return Event{Kind: "error", Error: msg}
}

// NewProgressEvent builds a throttled progress update.
func NewProgressEvent(id, filename string, percent int, speed string, size, downloaded int64) Event {
	return Event{
		Kind:       "progress",
		ID:         id,
		Filename:   filename,
		Percent:    percent,
		Speed:      speed,
		Size:       size,
		Downloaded: downloaded,
	}
}

// NewCompleteEvent builds the terminal complete event.
func NewCompleteEvent(id, filename, file string) Event {
	return Event{
		Kind:     "complete",
		ID:       id,
		Filename: filename,
		File:     file,
		Percent:  100,
	}
}
