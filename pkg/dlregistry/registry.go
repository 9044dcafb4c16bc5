package dlregistry

import "sync"

// Registry is the process-wide DownloadID -> Record table. All access is
// serialized by a single mutex: contention is trivially low at human-scale
// command rates, and one critical section avoids lock-ordering hazards that
// a per-record mutex scheme would introduce. No caller may hold the lock
// across I/O or a sleep; every method here does a single field read/write
// and returns.
type Registry struct {
	mu      sync.Mutex
	records map[string]*Record
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// InsertIfAbsent inserts rec if no record exists for rec.ID yet. It returns
// the record now stored under that ID (either rec itself, or the one that
// was already there) and whether rec was the one inserted.
//
// This implements invariant 4: starting a download whose ID already has a
// record - regardless of its status - returns the existing record instead
// of creating a new one. Terminal records never transition again (invariant
// 5), so re-dispatching the same URL cannot resurrect them either.
func (r *Registry) InsertIfAbsent(rec *Record) (stored *Record, inserted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[rec.ID]; ok {
		return existing, false
	}
	r.records[rec.ID] = rec
	return rec, true
}

// Snapshot returns a copy of the record for id, if any.
func (r *Registry) Snapshot(id string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// SetStatus transitions the record's status. No-op if the record is
// already in a terminal state or doesn't exist.
func (r *Registry) SetStatus(id string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Status.IsTerminal() {
		return
	}
	rec.Status = status
}

// SetError records the error message alongside a status=error transition.
func (r *Registry) SetError(id, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Status.IsTerminal() {
		return
	}
	rec.Status = StatusError
	rec.Err = msg
}

// SetMetadata fills in the fields learned from probing: filename, output
// path and size. Called once, before the download transitions out of
// pending.
func (r *Registry) SetMetadata(id, filename, outputPath string, size int64, numSegments int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return
	}
	rec.Filename = filename
	rec.OutputPath = outputPath
	rec.Size = size
	rec.NumSegments = numSegments
}

// SetPaused sets the paused flag. Mutated only by the dispatcher, read by
// fetchers and the coordinator.
func (r *Registry) SetPaused(id string, paused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		rec.Paused = paused
	}
}

// SetCancelled sets the cancelled flag.
func (r *Registry) SetCancelled(id string, cancelled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		rec.Cancelled = cancelled
	}
}

// IsPaused reports the current paused flag for id.
func (r *Registry) IsPaused(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	return ok && rec.Paused
}

// IsCancelled reports the current cancelled flag for id.
func (r *Registry) IsCancelled(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	return ok && rec.Cancelled
}

// AddDownloaded adds n to the record's downloaded counter and returns the
// new total. Used by the coordinator to aggregate segment completions.
func (r *Registry) AddDownloaded(id string, n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return 0
	}
	rec.Downloaded += n
	return rec.Downloaded
}

// Exists reports whether a record for id is present.
func (r *Registry) Exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[id]
	return ok
}
