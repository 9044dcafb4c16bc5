package nativemsg

import (
	"strings"
	"testing"

	"github.com/nativedl/dlaccel/pkg/dlengine"
)

// fakeEngine records the calls the Dispatcher makes so tests can assert
// routing without a real Coordinator/Registry/HTTP stack.
type fakeEngine struct {
	downloads []struct{ url, referer string }
	paused    []string
	resumed   []string
	cancelled []string
	nextID    string
}

func (f *fakeEngine) StartDownload(rawURL, referer string) string {
	f.downloads = append(f.downloads, struct{ url, referer string }{rawURL, referer})
	return f.nextID
}
func (f *fakeEngine) Pause(id string)  { f.paused = append(f.paused, id) }
func (f *fakeEngine) Resume(id string) { f.resumed = append(f.resumed, id) }
func (f *fakeEngine) Cancel(id string) { f.cancelled = append(f.cancelled, id) }

type fakeSink struct {
	events []dlengine.Event
}

func (s *fakeSink) Emit(e dlengine.Event) { s.events = append(s.events, e) }

func TestDispatcherRoutesDownloadCommand(t *testing.T) {
	engine := &fakeEngine{nextID: "abc123"}
	sink := &fakeSink{}
	d := NewDispatcher(nil, sink, engine)

	d.dispatchOne([]byte(`{"command":"download","url":"http://h/f.bin"}`))

	if len(engine.downloads) != 1 || engine.downloads[0].url != "http://h/f.bin" {
		t.Fatalf("expected one download call, got %+v", engine.downloads)
	}
}

func TestDispatcherDownloadMissingURLEmitsBadCommandError(t *testing.T) {
	engine := &fakeEngine{}
	sink := &fakeSink{}
	d := NewDispatcher(nil, sink, engine)

	d.dispatchOne([]byte(`{"command":"download"}`))

	if len(engine.downloads) != 0 {
		t.Fatalf("expected no download to start without a url")
	}
	if len(sink.events) != 1 || sink.events[0].Kind != "error" {
		t.Fatalf("expected a single error event, got %+v", sink.events)
	}
	if sink.events[0].ID != "" {
		t.Fatalf("expected a pre-ID error to have no id, got %q", sink.events[0].ID)
	}
}

func TestDispatcherPauseResumeCancelRouting(t *testing.T) {
	engine := &fakeEngine{}
	sink := &fakeSink{}
	d := NewDispatcher(nil, sink, engine)

	d.dispatchOne([]byte(`{"command":"pause","id":"x"}`))
	d.dispatchOne([]byte(`{"command":"resume","id":"x"}`))
	d.dispatchOne([]byte(`{"command":"cancel","id":"x"}`))

	if len(engine.paused) != 1 || len(engine.resumed) != 1 || len(engine.cancelled) != 1 {
		t.Fatalf("expected one call each, got paused=%v resumed=%v cancelled=%v", engine.paused, engine.resumed, engine.cancelled)
	}
}

func TestDispatcherMissingIDEmitsBadCommandError(t *testing.T) {
	engine := &fakeEngine{}
	sink := &fakeSink{}
	d := NewDispatcher(nil, sink, engine)

	d.dispatchOne([]byte(`{"command":"cancel"}`))

	if len(engine.cancelled) != 0 {
		t.Fatalf("expected no cancel call without an id")
	}
	if len(sink.events) != 1 || sink.events[0].Kind != "error" {
		t.Fatalf("expected an error event, got %+v", sink.events)
	}
}

func TestDispatcherUnknownCommandEmitsError(t *testing.T) {
	engine := &fakeEngine{}
	sink := &fakeSink{}
	d := NewDispatcher(nil, sink, engine)

	d.dispatchOne([]byte(`{"command":"frobnicate"}`))

	if len(sink.events) != 1 || !strings.Contains(sink.events[0].Error, "frobnicate") {
		t.Fatalf("expected unknown-command error naming the command, got %+v", sink.events)
	}
}

func TestDispatcherMalformedJSONDropsFrameSilently(t *testing.T) {
	engine := &fakeEngine{}
	sink := &fakeSink{}
	d := NewDispatcher(nil, sink, engine)

	d.dispatchOne([]byte(`{not valid json`))

	if len(sink.events) != 0 {
		t.Fatalf("expected malformed JSON to produce no event, got %+v", sink.events)
	}
	d.dispatchOne([]byte(`{"command":"pause","id":"y"}`))
	if len(engine.paused) != 1 {
		t.Fatalf("expected the dispatcher to continue processing after a malformed frame")
	}
}
