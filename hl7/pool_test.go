package hl7

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestPoolStats_HitRate(t *testing.T) {
	tests := []struct {
		name  string
		stats PoolStats
		want  float64
	}{
		{name: "no acquisitions", stats: PoolStats{}, want: 1},
		{name: "all hits", stats: PoolStats{Acquires: 10, Hits: 10}, want: 1},
		{name: "all misses", stats: PoolStats{Acquires: 10, Hits: 0}, want: 0},
		{name: "half hits", stats: PoolStats{Acquires: 10, Hits: 5}, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.HitRate(); got != tt.want {
				t.Errorf("HitRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPool_AcquireRelease(t *testing.T) {
	newCalls := 0
	resetCalls := 0
	p := NewPool(
		func() any { newCalls++; return new(int) },
		func(any) { resetCalls++ },
	)

	a := p.Acquire()
	stats := p.Stats()
	if stats.Acquires != 1 || stats.Misses != 1 || stats.Hits != 0 {
		t.Fatalf("after first Acquire, stats = %+v", stats)
	}
	if newCalls != 1 {
		t.Fatalf("new() called %d times, want 1", newCalls)
	}

	p.Release(a)
	if resetCalls != 1 {
		t.Fatalf("reset() called %d times, want 1", resetCalls)
	}

	b := p.Acquire()
	stats = p.Stats()
	if stats.Acquires != 2 || stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("after reuse, stats = %+v", stats)
	}
	if b != a {
		t.Error("Acquire() after Release() should reuse the same item")
	}
}

func TestPool_HighWaterMark(t *testing.T) {
	p := NewPool(func() any { return new(int) }, nil)

	a := p.Acquire()
	b := p.Acquire()
	c := p.Acquire()
	p.Release(a)

	stats := p.Stats()
	if stats.HighWaterMark != 3 {
		t.Errorf("HighWaterMark = %d, want 3", stats.HighWaterMark)
	}

	p.Release(b)
	p.Release(c)
}

func TestPool_MaxFreeBounds(t *testing.T) {
	p := NewPool(func() any { return new(int) }, nil, WithMaxFree(1))

	a := p.Acquire()
	b := p.Acquire()
	p.Release(a)
	p.Release(b) // dropped: free list already at capacity 1

	// The first Acquire that follows hits the one retained item; the
	// second misses because the free list is then drained.
	p.Acquire()
	p.Acquire()

	stats := p.Stats()
	if stats.Misses != 3 {
		t.Errorf("Misses = %d, want 3 (initial two plus one after the free list drained)", stats.Misses)
	}
}

func TestPool_LowHitRateWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p := NewPool(func() any { return new(int) }, nil, WithPoolLogger(logger))

	// 32 acquires, all misses (fresh pool every time since nothing is
	// released until the end): hit rate stays at 0, below LowHitRateFloor.
	items := make([]any, 32)
	for i := range items {
		items[i] = p.Acquire()
	}
	for _, item := range items {
		p.Release(item)
	}

	if !bytes.Contains(buf.Bytes(), []byte(string(CodePoolLowHitRate))) {
		t.Errorf("expected a low hit rate warning logged, got: %s", buf.String())
	}
}

func TestPool_NoWarnBelowAcquireFloor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p := NewPool(func() any { return new(int) }, nil, WithPoolLogger(logger))

	// Fewer than 32 acquires: no warning regardless of hit rate.
	for i := 0; i < 5; i++ {
		p.Release(p.Acquire())
	}

	if buf.Len() != 0 {
		t.Errorf("expected no warning below the acquire floor, got: %s", buf.String())
	}
}

func TestSegmentPool_AcquireRelease(t *testing.T) {
	sp := NewSegmentPool()

	s := sp.Acquire()
	s.name = "PID"
	if err := s.AddField(NewField(1, "foo")); err != nil {
		t.Fatalf("AddField() error = %v", err)
	}
	sp.Release(s)

	s2 := sp.Acquire()
	if s2 != s {
		t.Fatal("SegmentPool.Acquire() after Release() should reuse the same segment")
	}
	if s2.name != "" {
		t.Errorf("reused segment name = %q, want cleared", s2.name)
	}
	if s2.FieldCount() != 0 {
		t.Errorf("reused segment FieldCount() = %d, want 0", s2.FieldCount())
	}

	stats := sp.Stats()
	if stats.Hits != 1 {
		t.Errorf("Stats().Hits = %d, want 1", stats.Hits)
	}
}

func TestNextPoolGeneration_Monotonic(t *testing.T) {
	first := NextPoolGeneration()
	second := NextPoolGeneration()
	if second <= first {
		t.Errorf("NextPoolGeneration() not monotonic: %d then %d", first, second)
	}
}
