package stream

import (
	"math"
	"math/rand/v2"
	"sync"

	"option-guide/src/pricing"
)

// Generator is the placeholder synthetic price walk:
//
//	price' = max(floor, price + (u - 0.5) * maxDelta), u ~ U[0,1)
//
// Each session owns its own Generator.
type Generator struct {
	mu       sync.Mutex
	price    float64
	maxDelta float64
	floor    float64
	rnd      func() float64
}

// NewGenerator starts the walk at start. rnd defaults to math/rand/v2.
func NewGenerator(start, maxDelta, floor float64, rnd func() float64) *Generator {
	if rnd == nil {
		rnd = rand.Float64
	}
	if start < floor {
		start = floor
	}
	return &Generator{price: start, maxDelta: maxDelta, floor: floor, rnd: rnd}
}

// Step advances the walk and returns the unrounded price.
func (g *Generator) Step() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.price = math.Max(g.floor, g.price+(g.rnd()-0.5)*g.maxDelta)
	return g.price
}

// Next advances the walk and returns the price rounded to whole units,
// which is what gets published on the wire.
func (g *Generator) Next() float64 {
	return math.Round(g.Step())
}

// -----------------------------------------------------------------------------

// ReferenceSource publishes whatever the shared reference price holds,
// which the upstream poller keeps current.
type ReferenceSource struct {
	ref *pricing.ReferencePrice
}

func NewReferenceSource(ref *pricing.ReferencePrice) *ReferenceSource {
	return &ReferenceSource{ref: ref}
}

func (r *ReferenceSource) Next() float64 {
	return r.ref.Value()
}
