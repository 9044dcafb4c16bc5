package dlengine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// chunkSize is the size of one copy cycle between the response body and
// the sidecar file.
const chunkSize = 8 * 1024

// pausePollInterval bounds pause latency without a per-worker wake
// primitive: the fetch loop sleeps this long between paused-flag checks.
const pausePollInterval = 100 * time.Millisecond

// FlagChecker exposes the per-download control flags a Fetcher must
// consult between chunks. dlregistry.Registry satisfies it directly; each
// call takes and releases the registry's lock without holding it across
// I/O or the pause sleep.
type FlagChecker interface {
	IsPaused(id string) bool
	IsCancelled(id string) bool
}

// FetchSegment fetches rng from rawURL into partPath, streaming in
// chunkSize pieces. If useRange is false, no Range header is sent (the
// single-segment, whole-file path). progress, if non-nil, is invoked after
// every chunk write with the number of bytes just written; pass nil to
// report only at completion (the multi-segment path, which aggregates at
// the Coordinator instead).
//
// FetchSegment does not retry: any transport, write, or short-read failure
// is returned to the caller, which aborts the whole download per spec.
func FetchSegment(ctx context.Context, client *http.Client, id, rawURL, referer string, rng Range, useRange bool, partPath string, flags FlagChecker, progress func(n int)) (written int64, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, SegmentTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSegmentFailed, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	if useRange {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", rng.Start, rng.End))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSegmentFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: server returned %s", ErrSegmentFailed, resp.Status)
	}

	f, err := os.OpenFile(partPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSegmentFailed, err)
	}
	defer f.Close()

	buf := make([]byte, chunkSize)
	for {
		if flags.IsCancelled(id) {
			return written, ErrCancelled
		}
		for flags.IsPaused(id) {
			if flags.IsCancelled(id) {
				return written, ErrCancelled
			}
			time.Sleep(pausePollInterval)
		}
		if err := ctx.Err(); err != nil {
			return written, ErrCancelled
		}

		nr, rerr := resp.Body.Read(buf)
		if nr > 0 {
			nw, werr := f.Write(buf[:nr])
			written += int64(nw)
			if progress != nil {
				progress(nw)
			}
			if werr != nil {
				return written, fmt.Errorf("%w: %v", ErrSegmentFailed, werr)
			}
			if nw != nr {
				return written, fmt.Errorf("%w: short write", ErrSegmentFailed)
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return written, nil
			}
			return written, fmt.Errorf("%w: %v", ErrSegmentFailed, rerr)
		}
	}
}
