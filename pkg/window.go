package decoder

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

func absDiff[T constraints.Signed](a, b T) T {
	if a > b {
		return a - b
	}
	return b - a
}

// wrapAdd returns (value + offset) mod modulus for a non-negative offset.
func wrapAdd[T constraints.Integer](value, offset, modulus T) T {
	return (value + offset) % modulus
}

func fmtStream(stream int, format string, args ...any) string {
	return fmt.Sprintf("RB %d: %s", stream, fmt.Sprintf(format, args...))
}

// rawWindow remembers the last size values pushed and answers membership
// in constant time.
type rawWindow struct {
	ring   []uint64
	next   int
	filled bool
	counts map[uint64]int
}

func newRawWindow(size int) *rawWindow {
	return &rawWindow{
		ring:   make([]uint64, size),
		counts: make(map[uint64]int, size),
	}
}

func (w *rawWindow) Contains(value uint64) bool {
	return w.counts[value] > 0
}

func (w *rawWindow) Push(value uint64) {
	if w.filled {
		old := w.ring[w.next]
		w.counts[old]--
		if w.counts[old] == 0 {
			delete(w.counts, old)
		}
	}
	w.ring[w.next] = value
	w.counts[value]++
	w.next++
	if w.next == len(w.ring) {
		w.next = 0
		w.filled = true
	}
}

func (w *rawWindow) Len() int {
	if w.filled {
		return len(w.ring)
	}
	return w.next
}

// uuidIndex keeps, for every trigger uuid recorded, the position of its
// latest occurrence in the sequence of recorded uuids. Entries too old to
// match any later event are evicted, so the map holds at most about one
// window of uuids.
type uuidIndex struct {
	last  map[uint32]int
	order []uint32
	// position of order[0]
	first int
	count int
}

func newUUIDIndex() *uuidIndex {
	return &uuidIndex{last: make(map[uint32]int)}
}

func triggerUUID(l1counter uint8, bcid uint16) uint32 {
	return uint32(l1counter) | uint32(bcid)<<8
}

// SeenWithin reports whether uuid was recorded at a position closer than
// window to index. index must not decrease between calls.
func (u *uuidIndex) SeenWithin(uuid uint32, index int, window int) bool {
	u.evict(index - window)
	pos, ok := u.last[uuid]
	if !ok {
		return false
	}
	return absDiff(index, pos) < window
}

// evict drops the entries recorded at or before position limit.
func (u *uuidIndex) evict(limit int) {
	for len(u.order) > 0 && u.first <= limit {
		uuid := u.order[0]
		if u.last[uuid] == u.first {
			delete(u.last, uuid)
		}
		u.order = u.order[1:]
		u.first++
	}
}

func (u *uuidIndex) Record(uuid uint32) {
	u.last[uuid] = u.count
	u.order = append(u.order, uuid)
	u.count++
}

func (u *uuidIndex) Len() int {
	return len(u.last)
}
