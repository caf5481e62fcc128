package reminder

import (
	"errors"
	"slices"
	"sync"
	"time"
)

var (
	// ErrRegistryStopped is returned when arming after Stop.
	ErrRegistryStopped = errors.New("reminder registry stopped")
	// ErrObservationSuperseded is returned when the task was cancelled or
	// observed again after the caller's observation began.
	ErrObservationSuperseded = errors.New("reminder observation superseded")
)

// unobserved arms or clears regardless of concurrent observations. Only the
// boot load uses it.
const unobserved uint64 = 0

// observation tracks the reads in flight for one task. seq moves on every
// new observation and every external cancel; a caller may act on its read
// only while seq still equals its token.
type observation struct {
	seq     uint64
	holders int
}

// job is one armed reminder. gen identifies the arming so a callback from a
// replaced or cancelled timer can recognise itself as stale.
type job struct {
	timer  Timer
	fireAt time.Time
	gen    uint64
}

// Registry holds at most one armed job per task ID. All transitions (arm,
// cancel, claim on fire) happen under a single mutex.
type Registry struct {
	clock Clock

	mu       sync.Mutex
	jobs     map[string]*job
	observed map[string]*observation
	nextGen  uint64
	stopped  bool
	inflight sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry(clock Clock) *Registry {
	return &Registry{
		clock:    clock,
		jobs:     make(map[string]*job),
		observed: make(map[string]*observation),
	}
}

// Observe starts a read of taskID's state. The returned token is passed to
// ArmObserved or ClearObserved once the read completes; done must be called
// afterwards. A later Observe or Cancel on the same task makes the token
// stale.
func (r *Registry) Observe(taskID string) (token uint64, done func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.observed[taskID]
	if !ok {
		o = &observation{}
		r.observed[taskID] = o
	}
	o.seq++
	o.holders++

	var once sync.Once
	return o.seq, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			o.holders--
			if o.holders == 0 {
				delete(r.observed, taskID)
			}
		})
	}
}

func (r *Registry) currentLocked(taskID string, token uint64) bool {
	if token == unobserved {
		return true
	}
	o, ok := r.observed[taskID]
	return ok && o.seq == token
}

// Arm replaces any job for taskID with a timer that calls fire(at) at the
// instant at. fire runs only if the job is still current when the timer
// expires. Arm returns false once the registry has been stopped.
func (r *Registry) Arm(taskID string, at time.Time, fire func(armedAt time.Time)) bool {
	return r.ArmObserved(taskID, unobserved, at, fire) == nil
}

// ArmObserved is Arm gated on token still being current. Check and arm
// happen in one critical section with Cancel.
func (r *Registry) ArmObserved(taskID string, token uint64, at time.Time, fire func(armedAt time.Time)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return ErrRegistryStopped
	}
	if !r.currentLocked(taskID, token) {
		return ErrObservationSuperseded
	}
	r.cancelLocked(taskID)

	r.nextGen++
	gen := r.nextGen
	j := &job{fireAt: at, gen: gen}
	// The callback blocks on r.mu until the job below is stored, so even a
	// zero delay cannot claim before it exists.
	j.timer = r.clock.AfterFunc(at.Sub(r.clock.Now()), func() {
		if !r.claim(taskID, gen) {
			return
		}
		defer r.inflight.Done()
		fire(at)
	})
	r.jobs[taskID] = j
	return nil
}

// ClearObserved removes the job for taskID if token is still current. It
// reports whether a job was removed.
func (r *Registry) ClearObserved(taskID string, token uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.currentLocked(taskID, token) {
		return false
	}
	return r.cancelLocked(taskID)
}

// claim removes the job if gen is still current. On success the caller owns
// one inflight slot and must release it.
func (r *Registry) claim(taskID string, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[taskID]
	if !ok || j.gen != gen || r.stopped {
		return false
	}
	delete(r.jobs, taskID)
	r.inflight.Add(1)
	return true
}

// Cancel stops and removes the job for taskID and invalidates every
// observation of it still in flight. It reports whether a job was present.
func (r *Registry) Cancel(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.observed[taskID]; ok {
		o.seq++
	}
	return r.cancelLocked(taskID)
}

func (r *Registry) cancelLocked(taskID string) bool {
	j, ok := r.jobs[taskID]
	if !ok {
		return false
	}
	j.timer.Stop()
	delete(r.jobs, taskID)
	return true
}

// FireAt returns the instant the job for taskID is armed for.
func (r *Registry) FireAt(taskID string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[taskID]
	if !ok {
		return time.Time{}, false
	}
	return j.fireAt, true
}

// IDs returns the task IDs with a pending job, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.jobs))
	for id := range r.jobs {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	slices.Sort(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Stop cancels every pending job and refuses further arming. Callbacks that
// already claimed their job keep running; Wait blocks until they finish.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	for id := range r.jobs {
		r.cancelLocked(id)
	}
}

// Wait blocks until every claimed callback has returned.
func (r *Registry) Wait() {
	r.inflight.Wait()
}
