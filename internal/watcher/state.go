package watcher

import (
	"sync"
	"time"
)

// Job is the view the watch state needs of an in-flight build.
type Job interface {
	// Cancel requests cooperative cancellation.
	Cancel()
	// StartedAt returns the time the job was submitted.
	StartedAt() time.Time
	// Running reports whether the job has neither completed nor been cancelled.
	Running() bool
}

// Burst is one classified batch of changes from a single poll.
type Burst struct {
	Events  []ChangeEvent
	Clean   bool
	Restart bool
}

// Snapshot is an immutable copy of the pending change set taken for planning.
type Snapshot struct {
	Events  []ChangeEvent
	Clean   bool
	Restart bool

	cleanSeq   uint64
	restartSeq uint64
}

// Admission is the outcome of offering a burst to the state.
type Admission int

const (
	// Admitted means the burst was accumulated and nothing was running.
	Admitted Admission = iota
	// AdmittedAfterCancel means the burst was accumulated and the running job was cancelled.
	AdmittedAfterCancel
	// Suppressed means the burst was treated as an echo of the running job's input.
	Suppressed
)

// State is the only cross-goroutine mutable state of the loop: the pending
// change set, the sticky clean and restart flags, and the in-flight job.
// The watch goroutine writes it; the build lane snapshots and commits it.
type State struct {
	mutex      sync.Mutex
	pending    map[string]ChangeEvent
	clean      bool
	restart    bool
	cleanSeq   uint64
	restartSeq uint64
	inflight   Job
}

// NewState returns an empty state.
func NewState() *State {
	return &State{pending: make(map[string]ChangeEvent)}
}

// Admit applies the debounce rule to burst and, unless it is suppressed,
// cancels any running job and accumulates the burst. The whole decision is
// taken under one lock.
//
// A burst is suppressed when a job is running, it started less than window
// ago, and the burst has exactly as many events as the pending set. This is
// a heuristic for editor save echoes and can misfire on an unrelated burst
// of the same size.
func (s *State) Admit(burst Burst, now time.Time, window time.Duration) Admission {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	running := s.inflight != nil && s.inflight.Running()
	if running &&
		now.Sub(s.inflight.StartedAt()) < window &&
		len(burst.Events) == len(s.pending) {
		return Suppressed
	}

	result := Admitted
	if running {
		s.inflight.Cancel()
		result = AdmittedAfterCancel
	}

	s.accumulateLocked(burst)
	return result
}

// Accumulate adds burst to the pending set without any debounce decision.
func (s *State) Accumulate(burst Burst) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.accumulateLocked(burst)
}

func (s *State) accumulateLocked(burst Burst) {
	for _, ev := range burst.Events {
		if prev, ok := s.pending[ev.Path]; ok {
			ev = mergeEvent(prev, ev)
		}
		s.pending[ev.Path] = ev
	}
	if burst.Clean {
		s.clean = true
		s.cleanSeq++
	}
	if burst.Restart {
		s.restart = true
		s.restartSeq++
	}
}

// Len returns the size of the pending set.
func (s *State) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.pending)
}

// Snapshot copies the pending set, ordered by path then timestamp.
func (s *State) Snapshot() Snapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	events := make([]ChangeEvent, 0, len(s.pending))
	for _, ev := range s.pending {
		events = append(events, ev)
	}
	SortEvents(events)

	return Snapshot{
		Events:     events,
		Clean:      s.clean,
		Restart:    s.restart,
		cleanSeq:   s.cleanSeq,
		restartSeq: s.restartSeq,
	}
}

// Commit clears what snap covered after a successful build and deploy.
// Events that changed after the snapshot, and flags raised again since,
// stay pending for the next cycle.
func (s *State) Commit(snap Snapshot) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, ev := range snap.Events {
		if cur, ok := s.pending[ev.Path]; ok && cur.Timestamp.Equal(ev.Timestamp) && cur.Kind == ev.Kind {
			delete(s.pending, ev.Path)
		}
	}
	if snap.Clean && s.cleanSeq == snap.cleanSeq {
		s.clean = false
	}
	if snap.Restart && s.restartSeq == snap.restartSeq {
		s.restart = false
	}
}

// SetInflight records the job currently on the build lane.
func (s *State) SetInflight(job Job) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.inflight = job
}

// Inflight returns the job last recorded with SetInflight.
func (s *State) Inflight() Job {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.inflight
}

// TryCancelIfRunning cancels the in-flight job if it is still running.
func (s *State) TryCancelIfRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.inflight == nil || !s.inflight.Running() {
		return false
	}
	s.inflight.Cancel()
	return true
}
