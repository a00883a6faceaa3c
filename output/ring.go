// SPDX-License-Identifier: EPL-2.0

package output

import "sync/atomic"

const (
	slotEmpty int32 = iota
	slotReady
)

// ring is a fixed set of equally sized blocks, each guarded by its own
// readiness flag. The producer writes a slot only while it is empty and
// then publishes it; the consumer reads a slot only while it is ready and
// then releases it. The flag store is the only synchronisation: it
// happens-after the slot contents are written and before the other role
// may touch them.
type ring struct {
	slots   [][]float32
	status  []atomic.Int32
	samples int
}

func newRing(capacity, samples int) *ring {
	backing := make([]float32, capacity*samples)
	r := &ring{
		slots:   make([][]float32, capacity),
		status:  make([]atomic.Int32, capacity),
		samples: samples,
	}
	for i := range r.slots {
		r.slots[i] = backing[i*samples : (i+1)*samples : (i+1)*samples]
	}
	return r
}

func (r *ring) capacity() int { return len(r.slots) }

func (r *ring) ready(i int) bool { return r.status[i].Load() == slotReady }

func (r *ring) publish(i int) { r.status[i].Store(slotReady) }

func (r *ring) release(i int) { r.status[i].Store(slotEmpty) }

func (r *ring) next(i int) int {
	i++
	if i == len(r.slots) {
		return 0
	}
	return i
}

// readyCount is a racy snapshot, only meaningful for diagnostics.
func (r *ring) readyCount() int {
	n := 0
	for i := range r.status {
		if r.ready(i) {
			n++
		}
	}
	return n
}
