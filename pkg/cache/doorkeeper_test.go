package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDoorkeeper_RecordAndSeen(t *testing.T) {
	door := newDoorkeeper()

	assert.False(t, door.Seen("doc:1/p:1"), "A fresh doorkeeper should have seen nothing")
	assert.False(t, door.Record("doc:1/p:1"), "The first access is not a re-access")
	assert.True(t, door.Record("doc:1/p:1"), "The second access is a re-access")
	assert.True(t, door.Seen("doc:1/p:1"))
	assert.False(t, door.Seen("doc:1/p:2"), "Seen must not record anything")
}

func TestDoorkeeper_Reset(t *testing.T) {
	door := newDoorkeeper()

	door.Record("doc:1/p:1")
	door.Reset()
	assert.False(t, door.Seen("doc:1/p:1"))
	assert.False(t, door.Record("doc:1/p:1"), "After a reset the first access is fresh again")
}

func TestDoorkeeper_RotationKeepsRecentMemory(t *testing.T) {
	door := newDoorkeeper()

	door.Record("survivor")
	door.rotateLocked() // Simulate a generation turning over.
	assert.True(t, door.Seen("survivor"), "The previous generation still answers after one rotation")

	door.rotateLocked()
	assert.False(t, door.Seen("survivor"), "Two rotations age a key out entirely")
}
