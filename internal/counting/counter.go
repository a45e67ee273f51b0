// Package counting implements per-lane crossing detection: the counting-line
// test, spatiotemporal deduplication of detections, and the authoritative
// monotonic lane counters.
package counting

import "sync/atomic"

// LaneCounter is the authoritative cumulative crossing count for one lane.
// It is written only by the lane's own pipeline worker and read concurrently
// by the phase selector and the status endpoint, so reads must see a
// consistent snapshot; atomics provide that without a lock.
type LaneCounter struct {
	laneID string
	n      atomic.Int64
}

// NewLaneCounter returns a zeroed counter for the lane.
func NewLaneCounter(laneID string) *LaneCounter {
	return &LaneCounter{laneID: laneID}
}

// LaneID returns the lane this counter belongs to.
func (c *LaneCounter) LaneID() string { return c.laneID }

// Increment adds one accepted crossing and returns the new total.
// Only the owning pipeline worker may call this.
func (c *LaneCounter) Increment() int64 { return c.n.Add(1) }

// Value returns the current cumulative count. Safe for concurrent callers.
func (c *LaneCounter) Value() int64 { return c.n.Load() }
