package dlengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/nativedl/dlaccel/pkg/dlregistry"
)

const (
	// DefaultParallelism is the number of segments used when the
	// Coordinator isn't constructed with an explicit override.
	DefaultParallelism = 8
	// MinSizeForSegments is the size threshold below which a download
	// always uses the single-segment path rather than being split across
	// a worker pool.
	MinSizeForSegments = 1 << 20 // 1 MiB

	cancelPollInterval = 50 * time.Millisecond
)

// Coordinator runs the per-download state machine: probe, partition,
// dispatch a bounded worker pool of Fetchers, aggregate progress, and
// merge. One Coordinator serves every download in the process; each call
// to run spins up its own worker pool, never shared across downloads.
type Coordinator struct {
	Client      *http.Client
	Registry    *dlregistry.Registry
	Sink        EventSink
	Throttler   *Throttler
	DownloadDir string
	Parallelism int
	Logger      *log.Logger
}

// NewCoordinator builds a Coordinator. parallelism <= 0 defaults to
// DefaultParallelism.
func NewCoordinator(client *http.Client, reg *dlregistry.Registry, sink EventSink, downloadDir string, parallelism int) *Coordinator {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &Coordinator{
		Client:      client,
		Registry:    reg,
		Sink:        sink,
		Throttler:   NewThrottler(),
		DownloadDir: downloadDir,
		Parallelism: parallelism,
	}
}

// StartDownload handles the `download` command: it mints the DownloadID,
// inserts a pending record (or finds the existing one per invariant 4),
// acks with a started event, and - for a genuinely new ID - kicks off the
// rest of the state machine in the background so the dispatcher can keep
// reading frames.
func (c *Coordinator) StartDownload(rawURL, referer string) string {
	rec := &dlregistry.Record{
		ID:        ComputeID(rawURL),
		URL:       rawURL,
		Referer:   referer,
		Status:    dlregistry.StatusPending,
		StartTime: time.Now(),
	}
	stored, inserted := c.Registry.InsertIfAbsent(rec)
	c.Sink.Emit(NewStartedEvent(stored.ID))
	if inserted {
		go c.run(context.Background(), stored.ID)
	}
	return stored.ID
}

// Pause handles the `pause` command.
func (c *Coordinator) Pause(id string) {
	c.Registry.SetPaused(id, true)
	c.Registry.SetStatus(id, dlregistry.StatusPaused)
	c.Sink.Emit(NewPausedEvent(id))
}

// Resume handles the `resume` command.
func (c *Coordinator) Resume(id string) {
	c.Registry.SetPaused(id, false)
	c.Registry.SetStatus(id, dlregistry.StatusDownloading)
	c.Sink.Emit(NewResumedEvent(id))
}

// Cancel handles the `cancel` command. It is the single terminal event
// for the download: it returns immediately and the Coordinator's own
// cleanup, observed asynchronously, emits nothing further.
func (c *Coordinator) Cancel(id string) {
	c.Registry.SetCancelled(id, true)
	c.Registry.SetStatus(id, dlregistry.StatusCancelled)
	c.Sink.Emit(NewCancelledEvent(id))
}

// run executes the full probe -> partition -> fetch -> merge pipeline for
// one download. It always emits exactly one terminal event, unless the
// termination was caused by an explicit cancel (whose ack was already
// emitted by Cancel).
func (c *Coordinator) run(ctx context.Context, id string) {
	rec, ok := c.Registry.Snapshot(id)
	if !ok {
		return
	}

	probe, err := NewProber(c.Client).Probe(ctx, rec.URL, rec.Referer)
	if err != nil {
		c.fail(id, err)
		return
	}

	numSegments := c.numSegments(probe)
	outputPath := filepath.Join(c.DownloadDir, probe.Filename)
	c.Registry.SetMetadata(id, probe.Filename, outputPath, probe.Size, numSegments)
	c.Registry.SetStatus(id, dlregistry.StatusDownloading)
	if c.Logger != nil {
		c.Logger.Printf("probed %s: %s across %d segment(s)", probe.Filename, humanize.IBytes(uint64(probe.Size)), numSegments)
	}

	if c.Registry.IsCancelled(id) {
		return
	}

	if alreadyComplete(outputPath, probe.Size) {
		c.Registry.SetStatus(id, dlregistry.StatusComplete)
		c.Sink.Emit(NewCompleteEvent(id, probe.Filename, outputPath))
		return
	}

	fetchErr := c.fetchAll(ctx, id, rec.URL, rec.Referer, outputPath, probe, numSegments)
	if errors.Is(fetchErr, ErrCancelled) {
		c.cleanup(outputPath, numSegments)
		return
	}
	if fetchErr != nil {
		c.cleanup(outputPath, numSegments)
		c.fail(id, fetchErr)
		return
	}

	if numSegments > 1 {
		if err := c.merge(outputPath, numSegments); err != nil {
			c.cleanup(outputPath, numSegments)
			c.fail(id, fmt.Errorf("%w: %v", ErrMergeFailed, err))
			return
		}
	}

	c.Registry.SetStatus(id, dlregistry.StatusComplete)
	c.Sink.Emit(NewCompleteEvent(id, probe.Filename, outputPath))
}

func (c *Coordinator) fail(id string, err error) {
	if c.Registry.IsCancelled(id) {
		// Cancel already emitted the terminal event; a fetch aborted by the
		// cancel watcher's context surfaces here as a transport error.
		return
	}
	c.Registry.SetError(id, err.Error())
	c.Sink.Emit(NewErrorEvent(id, err))
}

func (c *Coordinator) numSegments(p *ProbeResult) int {
	if p.Size < MinSizeForSegments || !p.Resumable {
		return 1
	}
	return c.Parallelism
}

func alreadyComplete(path string, size int64) bool {
	if size <= 0 {
		return false
	}
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular() && fi.Size() == size
}

// fetchAll runs the single- or multi-segment fetch path and returns
// ErrCancelled, a fetch error, or nil.
func (c *Coordinator) fetchAll(ctx context.Context, id, rawURL, referer, outputPath string, probe *ProbeResult, numSegments int) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.watchCancel(runCtx, cancel, id)

	if numSegments == 1 {
		return c.fetchSingle(runCtx, id, rawURL, referer, outputPath, probe)
	}
	return c.fetchMulti(runCtx, id, rawURL, referer, outputPath, probe, numSegments)
}

// watchCancel propagates the registry's cancelled flag into ctx's cancel
// function, so in-flight Fetchers observe it via ctx.Err() as well as via
// the flag itself.
func (c *Coordinator) watchCancel(ctx context.Context, cancel context.CancelFunc, id string) {
	ticker := time.NewTicker(cancelPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.Registry.IsCancelled(id) {
				cancel()
				return
			}
		}
	}
}

// fetchSingle is the whole-file path used when the resource is small or
// not range-capable. It writes directly to outputPath and reports
// progress per chunk, since there is no segment boundary to hook - this
// also corrects the source design's bug where the single-segment path
// reported a literal "file" instead of the real filename.
func (c *Coordinator) fetchSingle(ctx context.Context, id, rawURL, referer, outputPath string, probe *ProbeResult) error {
	rng := Range{Index: 0, Start: 0, End: probe.Size - 1}
	_, err := FetchSegment(ctx, c.Client, id, rawURL, referer, rng, false, outputPath, c.Registry, func(n int) {
		total := c.Registry.AddDownloaded(id, int64(n))
		c.emitProgress(id, probe, total)
	})
	if err != nil {
		os.Remove(outputPath)
		if errors.Is(err, ErrCancelled) {
			return ErrCancelled
		}
		return err
	}
	return nil
}

// fetchMulti partitions the resource into numSegments ranges and fetches
// them concurrently through a bounded worker pool (errgroup.SetLimit),
// aggregating progress at each segment's completion rather than per
// chunk. errgroup records only the first error across all segments and
// its derived context cancels the remaining in-flight fetches.
func (c *Coordinator) fetchMulti(ctx context.Context, id, rawURL, referer, outputPath string, probe *ProbeResult, numSegments int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numSegments)

	for _, rng := range Partition(probe.Size, numSegments) {
		rng := rng
		g.Go(func() error {
			partPath := PartPath(outputPath, rng.Index)
			written, err := FetchSegment(gctx, c.Client, id, rawURL, referer, rng, true, partPath, c.Registry, nil)
			if err != nil {
				return err
			}
			total := c.Registry.AddDownloaded(id, written)
			c.emitProgress(id, probe, total)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrCancelled) {
			return ErrCancelled
		}
		return err
	}
	if c.Registry.IsCancelled(id) {
		return ErrCancelled
	}
	return nil
}

func (c *Coordinator) emitProgress(id string, probe *ProbeResult, downloaded int64) {
	now := time.Now()
	if !c.Throttler.Allow(id, now) {
		return
	}
	rec, ok := c.Registry.Snapshot(id)
	if !ok {
		return
	}
	percent := 0
	if probe.Size > 0 {
		percent = int(downloaded * 100 / probe.Size)
		if percent > 100 {
			percent = 100
		}
	}
	speed := FormatSpeed(downloaded, now.Sub(rec.StartTime))
	c.Sink.Emit(NewProgressEvent(id, rec.Filename, percent, speed, probe.Size, downloaded))
}

// merge concatenates the N segment sidecars into outputPath strictly by
// index, unlinking each as it is appended.
func (c *Coordinator) merge(outputPath string, numSegments int) error {
	out, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return err
	}
	defer out.Close()

	for i := 0; i < numSegments; i++ {
		if err := appendPart(out, PartPath(outputPath, i)); err != nil {
			return err
		}
	}
	return nil
}

func appendPart(out *os.File, partPath string) error {
	in, err := os.Open(partPath)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	in.Close()
	if err != nil {
		return err
	}
	return os.Remove(partPath)
}

// cleanup removes whatever on-disk artifacts a failed or cancelled
// download left behind. Unlink errors are swallowed from the protocol's
// point of view but are aggregated into a single logged warning instead
// of one log line per sidecar.
func (c *Coordinator) cleanup(outputPath string, numSegments int) {
	if numSegments <= 1 {
		os.Remove(outputPath)
		return
	}
	var merr *multierror.Error
	for i := 0; i < numSegments; i++ {
		if err := os.Remove(PartPath(outputPath, i)); err != nil && !os.IsNotExist(err) {
			merr = multierror.Append(merr, err)
		}
	}
	if merr != nil && c.Logger != nil {
		c.Logger.Printf("cleanup: %v", merr)
	}
}
