package coh_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/archsim/cohmesh/coh"
)

type fakeCredit struct{ empty bool }

func (f fakeCredit) Empty() bool { return f.empty }

type fakeTable struct{ full bool }

func (f fakeTable) Full() bool { return f.full }

func TestRunExecutesWhenResourcesAvailable(t *testing.T) {
	executed := false

	shortage := coh.Run(coh.CmdList{
		Exec: func() { executed = true },
	})

	assert.Nil(t, shortage)
	assert.True(t, executed)
}

func TestRunBlocksOnCreditShortage(t *testing.T) {
	executed := false

	shortage := coh.Run(coh.CmdList{
		Resources: coh.Resources{Credits: []coh.Debitable{fakeCredit{empty: true}}},
		Exec:      func() { executed = true },
	})

	assert.NotNil(t, shortage)
	assert.NotNil(t, shortage.Credit)
	assert.False(t, executed)
}

func TestRunBlocksOnTableShortage(t *testing.T) {
	shortage := coh.Run(coh.CmdList{
		Resources: coh.Resources{Tables: []coh.Fittable{fakeTable{full: true}}},
		Exec:      func() {},
	})

	assert.NotNil(t, shortage)
	assert.NotNil(t, shortage.Table)
}
