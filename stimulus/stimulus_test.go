package stimulus_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/stimulus"
)

func TestProgrammaticRejectsUnknownCPU(t *testing.T) {
	p := stimulus.NewProgrammatic([]int{0})

	err := p.PushStimulus(1000, coh.Load, cachegeom.Addr(0x0))
	assert.Error(t, err)
}

func TestProgrammaticPeekAdvance(t *testing.T) {
	p := stimulus.NewProgrammatic([]int{0})

	require.NoError(t, p.PushStimulus(0, coh.Load, cachegeom.Addr(0x40)))
	p.AdvanceCursor(200)
	require.NoError(t, p.PushStimulus(0, coh.Store, cachegeom.Addr(0x40)))

	cmd, ok := p.Peek(0)
	require.True(t, ok)
	assert.Equal(t, coh.Load, cmd.Opcode)

	p.Advance(0)

	cmd, ok = p.Peek(0)
	require.True(t, ok)
	assert.Equal(t, coh.Store, cmd.Opcode)
}

func TestTraceParsesWhitespaceSeparatedLines(t *testing.T) {
	text := "200 0 Load 0x0\n400 0 Store 0x40\n"

	tr, err := stimulus.NewTraceFromReader(strings.NewReader(text))
	require.NoError(t, err)

	cmd, ok := tr.Peek(0)
	require.True(t, ok)
	assert.Equal(t, coh.Load, cmd.Opcode)
	assert.Equal(t, cachegeom.Addr(0x0), cmd.Addr)

	tr.Advance(0)

	cmd, ok = tr.Peek(0)
	require.True(t, ok)
	assert.Equal(t, coh.Store, cmd.Opcode)
}

func TestTraceRejectsOutOfOrderTime(t *testing.T) {
	text := "400 0 Load 0x0\n200 0 Store 0x40\n"

	_, err := stimulus.NewTraceFromReader(strings.NewReader(text))
	assert.Error(t, err)
}

func TestTraceRejectsUnknownOpcode(t *testing.T) {
	text := "200 0 Flush 0x0\n"

	_, err := stimulus.NewTraceFromReader(strings.NewReader(text))
	assert.Error(t, err)
}
