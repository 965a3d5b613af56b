package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawWindow(t *testing.T) {
	w := newRawWindow(3)
	for _, v := range []uint64{1, 2, 3} {
		w.Push(v)
	}
	assert.Equal(t, 3, w.Len())
	assert.True(t, w.Contains(1))

	w.Push(4)
	assert.False(t, w.Contains(1))
	assert.True(t, w.Contains(4))
	assert.Equal(t, 3, w.Len())
}

func TestRawWindowRepeatedValue(t *testing.T) {
	w := newRawWindow(2)
	w.Push(7)
	w.Push(7)
	w.Push(8)
	// one of the two sevens is still inside
	assert.True(t, w.Contains(7))
	w.Push(9)
	assert.False(t, w.Contains(7))
}

func TestUUIDIndex(t *testing.T) {
	u := newUUIDIndex()
	uuid := triggerUUID(5, 100)
	assert.Equal(t, uint32(5|100<<8), uuid)
	assert.False(t, u.SeenWithin(uuid, 0, 150))

	u.Record(uuid)
	assert.True(t, u.SeenWithin(uuid, 149, 150))
	assert.False(t, u.SeenWithin(uuid, 150, 150))

	for i := 0; i < 10; i++ {
		u.Record(triggerUUID(uint8(i), 1))
	}
	u.Record(uuid)
	// the latest occurrence counts
	assert.True(t, u.SeenWithin(uuid, 160, 150))
}

func TestUUIDIndexEvictsOldEntries(t *testing.T) {
	u := newUUIDIndex()
	for i := 0; i < 10000; i++ {
		uuid := uint32(i)
		assert.False(t, u.SeenWithin(uuid, i, 150))
		u.Record(uuid)
	}
	assert.LessOrEqual(t, u.Len(), 150)
	assert.True(t, u.SeenWithin(9999, 10000, 150))
	assert.False(t, u.SeenWithin(9800, 10000, 150))
}

func TestWrapAdd(t *testing.T) {
	assert.Equal(t, 11, wrapAdd(10, 1, 3564))
	assert.Equal(t, 0, wrapAdd(3563, 1, 3564))
	assert.Equal(t, 5, absDiff(3, 8))
	assert.Equal(t, 5, absDiff(8, 3))
}
