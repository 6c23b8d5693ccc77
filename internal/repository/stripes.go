package repository

import (
	"sync"

	"barsync/internal/model"

	"github.com/cespare/xxhash/v2"
)

const stripeCount = 64

// stripeIndex picks the stripe owning a document. Documents on different
// stripes never contend.
func stripeIndex(collection model.Collection, id string) int {
	return int(xxhash.Sum64String(string(collection)+"/"+id) % stripeCount)
}

// lockStripes serializes read-modify-write cycles per document for backends
// without a native compare-and-swap.
type lockStripes struct {
	mu [stripeCount]sync.Mutex
}

func (l *lockStripes) lock(collection model.Collection, id string) func() {
	m := &l.mu[stripeIndex(collection, id)]
	m.Lock()
	return m.Unlock
}
