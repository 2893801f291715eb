// Package monitor implements the verification and statistics sink named
// an external collaborator by the core's design (§6): a sim.Hook that
// tallies the coherence events every agent already fires, plus a
// gorilla/mux HTTP surface a front-end can poll for a live snapshot.
// The core never imports this package — a Recorder subscribes to an
// elaborated soc.System the same way an outside analyzer subscribes to
// any other Hookable in this fabric.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/archsim/cohmesh/sim"
)

// OccupancyFunc reports a live table's fill level, e.g. ccagent.Comp's
// or diragent.Comp's TxnOccupancy.
type OccupancyFunc func() (size, capacity int)

// Recorder accumulates per-hook-position counts from every agent it is
// registered against via AcceptHook, and polls a set of named occupancy
// sources on demand rather than tracking them continuously.
type Recorder struct {
	mu        sync.Mutex
	counts    map[string]uint64
	occupancy map[string]OccupancyFunc
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		counts:    make(map[string]uint64),
		occupancy: make(map[string]OccupancyFunc),
	}
}

// Func implements sim.Hook: every invocation increments the counter for
// the firing HookPos's name, regardless of which component fired it.
func (r *Recorder) Func(ctx sim.HookCtx) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[ctx.Pos.Name]++
}

// Watch registers an occupancy source under name, to be polled fresh on
// every Snapshot rather than pushed.
func (r *Recorder) Watch(name string, fn OccupancyFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.occupancy[name] = fn
}

// OccupancyReport is one table's fill level at snapshot time.
type OccupancyReport struct {
	Size     int `json:"size"`
	Capacity int `json:"capacity"`
}

// Snapshot is the Recorder's accumulated state at one point in time.
type Snapshot struct {
	Counts    map[string]uint64          `json:"counts"`
	Occupancy map[string]OccupancyReport `json:"occupancy"`
}

// Snapshot copies out the Recorder's current counters and polls every
// registered occupancy source.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]uint64, len(r.counts))
	for k, v := range r.counts {
		counts[k] = v
	}

	occ := make(map[string]OccupancyReport, len(r.occupancy))
	for name, fn := range r.occupancy {
		size, capacity := fn()
		occ[name] = OccupancyReport{Size: size, Capacity: capacity}
	}

	return Snapshot{Counts: counts, Occupancy: occ}
}

// Router builds the HTTP surface a front-end polls: GET /stats returns
// the current Snapshot as JSON.
func (r *Recorder) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/stats", r.handleStats).Methods(http.MethodGet)

	return router
}

func (r *Recorder) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(r.Snapshot()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
