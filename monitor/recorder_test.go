package monitor_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/monitor"
	"github.com/archsim/cohmesh/sim"
)

type fakeHookable struct {
	*sim.HookableBase
}

func newFakeHookable() *fakeHookable {
	return &fakeHookable{HookableBase: sim.NewHookableBase()}
}

func TestRecorderCountsHookInvocations(t *testing.T) {
	r := monitor.NewRecorder()

	h := newFakeHookable()
	h.AcceptHook(r)

	h.InvokeHook(sim.HookCtx{Domain: h, Pos: coh.HookPosLoadHit})
	h.InvokeHook(sim.HookCtx{Domain: h, Pos: coh.HookPosLoadHit})
	h.InvokeHook(sim.HookCtx{Domain: h, Pos: coh.HookPosLoadMiss})

	snap := r.Snapshot()
	assert.EqualValues(t, 2, snap.Counts[coh.HookPosLoadHit.Name])
	assert.EqualValues(t, 1, snap.Counts[coh.HookPosLoadMiss.Name])
}

func TestRecorderWatchReportsOccupancy(t *testing.T) {
	r := monitor.NewRecorder()
	r.Watch("Cc0.Txns", func() (int, int) { return 2, 4 })

	snap := r.Snapshot()
	require.Contains(t, snap.Occupancy, "Cc0.Txns")
	assert.Equal(t, monitor.OccupancyReport{Size: 2, Capacity: 4}, snap.Occupancy["Cc0.Txns"])
}

func TestRouterServesStats(t *testing.T) {
	r := monitor.NewRecorder()
	r.Watch("Cc0.Txns", func() (int, int) { return 1, 3 })

	srv := httptest.NewServer(r.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}
