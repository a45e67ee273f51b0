// Package pipeline runs the per-lane counting workers and the single consumer
// that aggregates their output. Workers never share state; everything crosses
// between goroutines through the bus or through atomic lane counters.
package pipeline

import (
	"context"
	"time"

	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/vision"
)

// DefaultBusCapacity bounds the aggregation channel. A slow consumer
// backpressures the lane workers instead of growing memory.
const DefaultBusCapacity = 64

// Item is one publication from a lane worker: a display-ready frame with the
// lane's current cumulative count, or a terminal sentinel (nil Frame,
// Terminal true) carrying the lane's final count.
type Item struct {
	LaneID    string
	Frame     *vision.Frame // nil on the terminal sentinel
	Count     int64
	LineFlash bool // an accepted crossing happened on this frame
	CrossX    int  // centroid of the accepted crossing, valid when LineFlash
	CrossY    int
	Terminal  bool
}

// Bus is the multi-producer single-consumer aggregation channel between the
// lane workers and the consumer.
type Bus struct {
	ch chan Item
}

// NewBus creates a bus. capacity <= 0 uses DefaultBusCapacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultBusCapacity
	}
	return &Bus{ch: make(chan Item, capacity)}
}

// Publish blocks until the item is accepted or the context is cancelled.
// Returns false on cancellation.
func (b *Bus) Publish(ctx context.Context, item Item) bool {
	select {
	case b.ch <- item:
		return true
	case <-ctx.Done():
		return false
	}
}

// PublishTimeout offers the item for at most d. Used for terminal sentinels
// during shutdown, when the context is already cancelled but the consumer is
// still draining.
func (b *Bus) PublishTimeout(item Item, d time.Duration) bool {
	select {
	case b.ch <- item:
		return true
	case <-time.After(d):
		return false
	}
}

// Next waits up to timeout for the next item. A timeout is not an error; the
// caller retries unless cancellation is set.
func (b *Bus) Next(timeout time.Duration) (Item, bool) {
	select {
	case item := <-b.ch:
		return item, true
	case <-time.After(timeout):
		return Item{}, false
	}
}

// TryNext returns a queued item without waiting. Used to drain stale items
// after cancellation.
func (b *Bus) TryNext() (Item, bool) {
	select {
	case item := <-b.ch:
		return item, true
	default:
		return Item{}, false
	}
}
