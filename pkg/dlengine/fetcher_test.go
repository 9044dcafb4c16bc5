package dlengine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// fakeFlags is a minimal FlagChecker for tests that don't need a full
// Registry.
type fakeFlags struct {
	paused    map[string]bool
	cancelled map[string]bool
}

func newFakeFlags() *fakeFlags {
	return &fakeFlags{paused: map[string]bool{}, cancelled: map[string]bool{}}
}

func (f *fakeFlags) IsPaused(id string) bool    { return f.paused[id] }
func (f *fakeFlags) IsCancelled(id string) bool { return f.cancelled[id] }

func newRangeServer(t *testing.T, content []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Accept-Ranges", "bytes")
		rangeHeader := r.Header.Get("Range")
		if rangeHeader == "" {
			w.Header().Set("Content-Length", strconv.Itoa(len(content)))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(content)
			return
		}
		spec := strings.TrimPrefix(rangeHeader, "bytes=")
		parts := strings.SplitN(spec, "-", 2)
		start, _ := strconv.Atoi(parts[0])
		end := len(content) - 1
		if parts[1] != "" {
			if e, err := strconv.Atoi(parts[1]); err == nil {
				end = e
			}
		}
		chunk := content[start : end+1]
		w.Header().Set("Content-Length", strconv.Itoa(len(chunk)))
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(chunk)
	}))
}

func TestFetchSegmentWritesWholeBody(t *testing.T) {
	content := []byte("hello segmented world")
	srv := newRangeServer(t, content)
	defer srv.Close()

	dir := t.TempDir()
	partPath := filepath.Join(dir, "out.bin.part0")

	written, err := FetchSegment(context.Background(), srv.Client(), "id1", srv.URL+"/f", "", Range{Start: 0, End: int64(len(content) - 1)}, false, partPath, newFakeFlags(), nil)
	if err != nil {
		t.Fatalf("FetchSegment: %v", err)
	}
	if written != int64(len(content)) {
		t.Fatalf("expected %d bytes written, got %d", len(content), written)
	}
	got, err := os.ReadFile(partPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q want %q", got, content)
	}
}

func TestFetchSegmentRespectsRange(t *testing.T) {
	content := []byte("0123456789")
	srv := newRangeServer(t, content)
	defer srv.Close()

	dir := t.TempDir()
	partPath := filepath.Join(dir, "out.bin.part1")

	_, err := FetchSegment(context.Background(), srv.Client(), "id1", srv.URL+"/f", "", Range{Start: 3, End: 6}, true, partPath, newFakeFlags(), nil)
	if err != nil {
		t.Fatalf("FetchSegment: %v", err)
	}
	got, _ := os.ReadFile(partPath)
	if string(got) != "3456" {
		t.Fatalf("expected range bytes 3-6, got %q", got)
	}
}

func TestFetchSegmentStopsWhenCancelled(t *testing.T) {
	content := strings.Repeat("x", 64*1024)
	srv := newRangeServer(t, []byte(content))
	defer srv.Close()

	dir := t.TempDir()
	partPath := filepath.Join(dir, "out.bin.part0")

	flags := newFakeFlags()
	flags.cancelled["id1"] = true

	_, err := FetchSegment(context.Background(), srv.Client(), "id1", srv.URL+"/f", "", Range{Start: 0, End: int64(len(content) - 1)}, false, partPath, flags, nil)
	if err != ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestFetchSegmentInvokesProgressCallback(t *testing.T) {
	content := []byte("progress-callback-body")
	srv := newRangeServer(t, content)
	defer srv.Close()

	dir := t.TempDir()
	partPath := filepath.Join(dir, "out.bin")

	var total int
	_, err := FetchSegment(context.Background(), srv.Client(), "id1", srv.URL+"/f", "", Range{Start: 0, End: int64(len(content) - 1)}, false, partPath, newFakeFlags(), func(n int) {
		total += n
	})
	if err != nil {
		t.Fatalf("FetchSegment: %v", err)
	}
	if total != len(content) {
		t.Fatalf("expected progress callback to total %d bytes, got %d", len(content), total)
	}
}
