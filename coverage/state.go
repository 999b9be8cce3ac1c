package coverage

import (
	"sync"
	"time"
)

// RunState is what a StateTracker knows about a run.
type RunState struct {
	Running   bool      `json:"running"`
	Snapshots int       `json:"snapshots"`
	Latest    *Snapshot `json:"latest,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Updated   time.Time `json:"updated"`
}

// StateTracker keeps the latest snapshot and the final result of a run so
// they can be served while the run is in progress.
type StateTracker struct {
	mu    sync.RWMutex
	state RunState
}

// NewStateTracker creates a new state tracker
func NewStateTracker() *StateTracker {
	return &StateTracker{}
}

// Start marks a run as in progress and forgets the previous one.
func (st *StateTracker) Start() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state = RunState{Running: true, Updated: time.Now()}
}

// Handle records s as the latest snapshot. It matches IterationHandler.
func (st *StateTracker) Handle(s Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.Latest = &s
	st.state.Snapshots++
	st.state.Updated = time.Now()
}

// Finish records the outcome of the run.
func (st *StateTracker) Finish(res Result, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.Running = false
	st.state.Result = &res
	if err != nil {
		st.state.Error = err.Error()
	}
	st.state.Updated = time.Now()
}

// State returns a copy of the tracked state.
func (st *StateTracker) State() RunState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state
}

// Handlers combines several iteration handlers into one that calls each in
// order. Nil handlers are skipped.
func Handlers(hs ...IterationHandler) IterationHandler {
	var active []IterationHandler
	for _, h := range hs {
		if h != nil {
			active = append(active, h)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(s Snapshot) {
		for _, h := range active {
			h(s)
		}
	}
}
