package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotCopiesCounters(t *testing.T) {
	c := New()
	c.StaleWorld.Add(1)
	c.StaleMutation.Add(2)
	c.FieldWrites.Add(10)

	s := c.Snapshot()
	c.FieldWrites.Add(5)

	assert.Equal(t, uint64(10), s.FieldWrites)
	assert.Equal(t, uint64(3), s.Stale())
	assert.Equal(t, uint64(15), c.Snapshot().FieldWrites)
}
