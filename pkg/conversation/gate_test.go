package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateArmAndConfirm(t *testing.T) {
	var g Gate
	assert.False(t, g.Armed())

	action := &ActionDescriptor{ActionType: "checkout"}
	superseded := g.Arm(action)
	assert.Nil(t, superseded)
	assert.True(t, g.Armed())

	released, ok := g.Confirm()
	require.True(t, ok)
	assert.Same(t, action, released)
	assert.False(t, g.Armed())
}

func TestGateLastProposalWins(t *testing.T) {
	var g Gate

	first := &ActionDescriptor{ActionType: "checkout", Description: "checkout room 500"}
	second := &ActionDescriptor{ActionType: "checkin", Description: "checkin room 302"}

	g.Arm(first)
	superseded := g.Arm(second)

	// Arming twice holds exactly one action, the most recent; the older one
	// is handed back so the caller can report it as cancelled.
	assert.Same(t, first, superseded)

	released, ok := g.Confirm()
	require.True(t, ok)
	assert.Same(t, second, released)
	assert.False(t, g.Armed())
}

func TestGateConfirmOnEmptyIsNoOp(t *testing.T) {
	var g Gate

	released, ok := g.Confirm()
	assert.False(t, ok)
	assert.Nil(t, released)

	// A confirm after a confirm must not release anything a second time.
	g.Arm(&ActionDescriptor{ActionType: "checkout"})
	_, ok = g.Confirm()
	require.True(t, ok)
	released, ok = g.Confirm()
	assert.False(t, ok)
	assert.Nil(t, released)
}

func TestGateCancelOnEmptyIsNoOp(t *testing.T) {
	var g Gate

	released, ok := g.Cancel()
	assert.False(t, ok)
	assert.Nil(t, released)
}

func TestGateCancelDiscards(t *testing.T) {
	var g Gate

	action := &ActionDescriptor{ActionType: "checkout"}
	g.Arm(action)

	released, ok := g.Cancel()
	require.True(t, ok)
	assert.Same(t, action, released)
	assert.False(t, g.Armed())
}
