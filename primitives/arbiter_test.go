package primitives_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsim/cohmesh/primitives"
)

type fakeRequester struct {
	hasReq  bool
	blocked bool
}

func (f fakeRequester) HasReq() bool  { return f.hasReq }
func (f fakeRequester) Blocked() bool { return f.blocked }

func TestArbiterRoundRobin(t *testing.T) {
	a := primitives.NewArbiter("a")

	reqs := []primitives.Requester{
		fakeRequester{hasReq: true},
		fakeRequester{hasReq: true},
		fakeRequester{hasReq: true},
	}

	idx, err := a.Tournament(reqs)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = a.Tournament(reqs)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = a.Tournament(reqs)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	idx, err = a.Tournament(reqs)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestArbiterSkipsBlocked(t *testing.T) {
	a := primitives.NewArbiter("a")

	reqs := []primitives.Requester{
		fakeRequester{hasReq: true, blocked: true},
		fakeRequester{hasReq: true, blocked: false},
	}

	idx, err := a.Tournament(reqs)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestArbiterNoRequestsIsNotDeadlock(t *testing.T) {
	a := primitives.NewArbiter("a")

	reqs := []primitives.Requester{
		fakeRequester{hasReq: false},
		fakeRequester{hasReq: false},
	}

	idx, err := a.Tournament(reqs)
	require.NoError(t, err)
	assert.Equal(t, -1, idx)
}

func TestArbiterDeadlock(t *testing.T) {
	a := primitives.NewArbiter("a")

	reqs := []primitives.Requester{
		fakeRequester{hasReq: true, blocked: true},
		fakeRequester{hasReq: true, blocked: true},
	}

	_, err := a.Tournament(reqs)
	require.Error(t, err)

	var deadlock *primitives.DeadlockError
	assert.ErrorAs(t, err, &deadlock)
	assert.Equal(t, "a", deadlock.Arbiter)
}
