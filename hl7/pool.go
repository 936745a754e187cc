package hl7

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// PoolStats reports allocation and reuse counters for a Pool.
type PoolStats struct {
	Acquires      uint64
	Hits          uint64 // satisfied from the free list
	Misses        uint64 // required a fresh allocation
	Releases      uint64
	HighWaterMark uint64 // largest number of items ever in flight at once
}

// HitRate returns Hits/Acquires, or 1.0 when no acquisitions have happened
// yet (an empty pool has not failed anyone).
func (s PoolStats) HitRate() float64 {
	if s.Acquires == 0 {
		return 1
	}
	return float64(s.Hits) / float64(s.Acquires)
}

// LowHitRateFloor is the hit-rate threshold below which a Pool logs a
// CodePoolLowHitRate warning on Release. It is a constant; no option
// changes it per Pool.
const LowHitRateFloor = 0.5

// Pool is a bounded free-list for a single kind of HL7 element (segment,
// field, repetition, component, or subcomponent). Parsers that build and
// discard large numbers of short-lived elements can reuse a Pool instead of
// allocating and garbage-collecting each one, reducing allocator pressure
// on high-throughput feeds.
//
// Pool is safe for concurrent use.
type Pool struct {
	new     func() any
	reset   func(any)
	maxFree int

	mu       sync.Mutex
	free     []any
	inFlight uint64

	stats  PoolStats
	logger *slog.Logger
}

// PoolOption configures a Pool constructed with NewPool.
type PoolOption func(*Pool)

// WithPoolLogger overrides the logger used to report a low hit rate.
// The default is slog.Default().
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(p *Pool) { p.logger = l }
}

// WithMaxFree bounds how many released items the pool retains for reuse.
// Items released past this bound are dropped for the garbage collector to
// reclaim rather than retained indefinitely. The default is 256.
func WithMaxFree(n int) PoolOption {
	return func(p *Pool) { p.maxFree = n }
}

// NewPool creates a Pool whose items are produced by newFn and, when reused,
// cleared by resetFn before being handed back out.
func NewPool(newFn func() any, resetFn func(any), opts ...PoolOption) *Pool {
	p := &Pool{
		new:     newFn,
		reset:   resetFn,
		maxFree: 256,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire returns an item from the free list if one is available, or a
// freshly allocated item otherwise.
func (p *Pool) Acquire() any {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Acquires++
	p.inFlight++
	if p.inFlight > p.stats.HighWaterMark {
		p.stats.HighWaterMark = p.inFlight
	}

	n := len(p.free)
	if n == 0 {
		p.stats.Misses++
		return p.new()
	}
	item := p.free[n-1]
	p.free = p.free[:n-1]
	p.stats.Hits++
	return item
}

// Release clears item and returns it to the free list for reuse, unless the
// free list is already at capacity. Release logs a CodePoolLowHitRate
// diagnostic via the configured logger when the running hit rate falls
// below LowHitRateFloor, which signals that this pool's working set is
// larger than its capacity and is thrashing rather than helping.
func (p *Pool) Release(item any) {
	if p.reset != nil {
		p.reset(item)
	}

	p.mu.Lock()
	if p.inFlight > 0 {
		p.inFlight--
	}
	p.stats.Releases++
	rate := p.stats.HitRate()
	acquires := p.stats.Acquires
	if len(p.free) < p.maxFree {
		p.free = append(p.free, item)
	}
	p.mu.Unlock()

	if acquires >= 32 && rate < LowHitRateFloor && p.logger != nil {
		p.logger.Warn("object pool hit rate below floor",
			slog.String("code", string(CodePoolLowHitRate)),
			slog.Float64("hit_rate", rate),
			slog.Uint64("acquires", acquires),
		)
	}
}

// Stats returns a snapshot of this pool's counters.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// SegmentPool is a Pool specialized for *segment values, keyed internally
// by nothing more than type; HL7 segments vary widely in field count, so
// reset simply truncates rather than attempting to preserve capacity per
// identifier.
type SegmentPool struct {
	p *Pool
}

// NewSegmentPool creates a SegmentPool ready for concurrent use.
func NewSegmentPool(opts ...PoolOption) *SegmentPool {
	return &SegmentPool{
		p: NewPool(
			func() any { return &segment{} },
			func(v any) {
				s := v.(*segment)
				s.name = ""
				s.fields = s.fields[:0]
				s.value = s.value[:0]
			},
			opts...,
		),
	}
}

// Acquire returns a zeroed *segment, reused from the free list when possible.
func (sp *SegmentPool) Acquire() *segment {
	return sp.p.Acquire().(*segment)
}

// Release returns s to the pool after clearing it.
func (sp *SegmentPool) Release(s *segment) {
	sp.p.Release(s)
}

// Stats returns this pool's hit/miss/high-water-mark counters.
func (sp *SegmentPool) Stats() PoolStats {
	return sp.p.Stats()
}

// poolGeneration is bumped whenever a pool-backed parse run starts, letting
// pooled elements detect that they outlived the run that acquired them.
// Parsers that hand pooled elements to callers should not rely on this
// alone; it exists to make accidental reuse-after-release detectable in
// tests rather than to provide a correctness guarantee.
var poolGeneration uint64

// NextPoolGeneration atomically advances and returns the global pool
// generation counter.
func NextPoolGeneration() uint64 {
	return atomic.AddUint64(&poolGeneration, 1)
}
