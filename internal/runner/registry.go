package runner

import (
	"os/exec"
	"sync"

	"github.com/openbench/openbench/internal/metrics"
)

// Handle is a registered live process. The done channel is closed by the
// supervising goroutine once Wait has returned, letting the cancellation path
// wait for exit without calling Wait itself.
type Handle struct {
	Cmd  *exec.Cmd
	done chan struct{}
}

// Done returns a channel closed when the process has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) markDone() {
	close(h.done)
}

// Registry tracks live processes and canceled run ids. One instance serves
// the whole process lifetime; it is shared between each run's supervising
// goroutine and any concurrent canceller, so every access takes the mutex.
// The canceled-set write in Cancel must be visible to the supervisor's
// post-wait check, which the mutex guarantees.
type Registry struct {
	mu       sync.Mutex
	procs    map[string]*Handle
	canceled map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		procs:    make(map[string]*Handle),
		canceled: make(map[string]struct{}),
	}
}

// Register records a started process under its run id.
func (r *Registry) Register(runID string, cmd *exec.Cmd) *Handle {
	h := &Handle{Cmd: cmd, done: make(chan struct{})}
	r.mu.Lock()
	r.procs[runID] = h
	r.mu.Unlock()
	metrics.RunsActive.Inc()
	return h
}

// Deregister removes the process handle for the run id, if present.
func (r *Registry) Deregister(runID string) {
	r.mu.Lock()
	_, present := r.procs[runID]
	delete(r.procs, runID)
	r.mu.Unlock()
	if present {
		metrics.RunsActive.Dec()
	}
}

// Get returns the live handle for the run id.
func (r *Registry) Get(runID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.procs[runID]
	return h, ok
}

// MarkCanceled records the run id in the canceled-set and returns the live
// handle, but only while the process is still registered. The lookup and the
// marker write share one critical section: once the supervisor has
// deregistered a naturally finished run, a late cancel can no longer mark it
// and overwrite the terminal status it just persisted. The cancellation path
// calls this before sending any termination signal, so a marker that is set
// is always observed by the supervisor's post-wait check.
func (r *Registry) MarkCanceled(runID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.procs[runID]
	if !ok {
		return nil, false
	}
	r.canceled[runID] = struct{}{}
	return h, true
}

// ConsumeCanceled reports whether the run id was marked canceled and clears
// the marker.
func (r *Registry) ConsumeCanceled(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.canceled[runID]
	delete(r.canceled, runID)
	return ok
}
