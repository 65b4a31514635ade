// The doorkeeper remembers which keys have been accessed recently using a rotating pair of Bloom filters, so
// the predictive eviction path can tell one-shot keys from keys that get re-accessed without holding every key
// in memory. False positives make an entry look re-accessed when it wasn't, which only makes eviction slightly
// more conservative for that entry.

package cache

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	// doorkeeperCapacity is the number of distinct keys each filter generation is sized for.
	doorkeeperCapacity = 100_000
	// doorkeeperFalsePositiveRate trades filter size against wrongly-protected entries.
	doorkeeperFalsePositiveRate = 0.01
)

// doorkeeper tracks recently accessed keys across two filter generations. When the current generation fills
// up it becomes the previous one and a fresh filter takes over, so the memory of past accesses fades instead
// of growing without bound.
type doorkeeper struct {
	mux      sync.Mutex
	current  *bloom.BloomFilter
	previous *bloom.BloomFilter
	inserts  uint64
}

func newDoorkeeper() *doorkeeper {
	return &doorkeeper{
		current:  bloom.NewWithEstimates(doorkeeperCapacity, doorkeeperFalsePositiveRate),
		previous: bloom.NewWithEstimates(doorkeeperCapacity, doorkeeperFalsePositiveRate),
	}
}

// Record notes an access to the key and reports whether the key had been seen in the current or previous
// generation, i.e. whether this access is a re-access.
func (d *doorkeeper) Record(key string) bool {
	d.mux.Lock()
	defer d.mux.Unlock()

	keyBytes := []byte(key)
	seen := d.current.Test(keyBytes) || d.previous.Test(keyBytes)
	if !d.current.Test(keyBytes) {
		d.current.Add(keyBytes)
		d.inserts++
		if d.inserts >= doorkeeperCapacity {
			d.rotateLocked()
		}
	}
	return seen
}

// Seen reports whether the key was accessed within the last two filter generations, without recording anything.
func (d *doorkeeper) Seen(key string) bool {
	d.mux.Lock()
	defer d.mux.Unlock()
	keyBytes := []byte(key)
	return d.current.Test(keyBytes) || d.previous.Test(keyBytes)
}

// Reset drops all remembered accesses.
func (d *doorkeeper) Reset() {
	d.mux.Lock()
	defer d.mux.Unlock()
	d.current.ClearAll()
	d.previous.ClearAll()
	d.inserts = 0
}

func (d *doorkeeper) rotateLocked() {
	d.previous, d.current = d.current, d.previous
	d.current.ClearAll()
	d.inserts = 0
}
