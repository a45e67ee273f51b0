package pipeline

import (
	"context"
	"time"

	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/monitoring"
)

// DefaultWaitTimeout is the consumer's bounded wait on the bus. A timeout is
// simply a retry, not an error.
const DefaultWaitTimeout = 100 * time.Millisecond

// ConsumerConfig configures the aggregation consumer.
type ConsumerConfig struct {
	// Lanes is every configured lane; the final results mapping always has
	// one entry per lane even if a lane never published.
	Lanes []string

	// WaitTimeout bounds each wait on the bus. Zero uses DefaultWaitTimeout.
	WaitTimeout time.Duration

	// OnItem, when set, receives each display-ready frame item. This is the
	// hook the (external) renderer attaches to; it is never called for
	// terminal sentinels or for items drained after cancellation.
	OnItem func(Item)
}

// Consumer is the single drain of the aggregation bus. It tracks per-lane
// termination and folds final counts into the results mapping; on
// cancellation it discards queued stale frames and flushes what was counted
// so far.
type Consumer struct {
	bus *Bus
	cfg ConsumerConfig
}

// NewConsumer wires a consumer to the bus.
func NewConsumer(bus *Bus, cfg ConsumerConfig) *Consumer {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	return &Consumer{bus: bus, cfg: cfg}
}

// Run consumes until every lane has published its terminal sentinel or the
// context is cancelled, whichever comes first. The returned mapping holds the
// last observed count for every configured lane; counts already made are
// never lost to cancellation.
func (c *Consumer) Run(ctx context.Context) map[string]int64 {
	finals := make(map[string]int64, len(c.cfg.Lanes))
	for _, lane := range c.cfg.Lanes {
		finals[lane] = 0
	}
	finished := make(map[string]bool, len(c.cfg.Lanes))

	for len(finished) < len(c.cfg.Lanes) {
		if ctx.Err() != nil {
			c.drain(finals)
			break
		}

		item, ok := c.bus.Next(c.cfg.WaitTimeout)
		if !ok {
			continue // timeout: retry unless cancellation is set
		}
		c.apply(item, finals, finished)
	}

	return finals
}

// apply folds one item into the results. Terminal sentinels finish their
// lane; ordinary items update the lane's running count and feed the display
// hook.
func (c *Consumer) apply(item Item, finals map[string]int64, finished map[string]bool) {
	if _, known := finals[item.LaneID]; !known {
		monitoring.Logf("ignoring item from unconfigured lane %q", item.LaneID)
		return
	}
	finals[item.LaneID] = item.Count
	if item.Terminal {
		if !finished[item.LaneID] {
			finished[item.LaneID] = true
			monitoring.Logf("%s - lane finished, count: %d", item.LaneID, item.Count)
		}
		return
	}
	if c.cfg.OnItem != nil {
		c.cfg.OnItem(item)
	}
}

// drain empties the bus after cancellation. Stale frames are not processed,
// but counts they carry are still folded in so the final report reflects
// everything counted before shutdown. Terminal sentinels arriving during the
// drain are honoured the same way.
func (c *Consumer) drain(finals map[string]int64) {
	for {
		item, ok := c.bus.TryNext()
		if !ok {
			return
		}
		if _, known := finals[item.LaneID]; !known {
			continue
		}
		if item.Count > finals[item.LaneID] {
			finals[item.LaneID] = item.Count
		}
	}
}
