package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/monitoring"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/vision"
)

func TestConsumerFinishesWhenAllLanesTerminal(t *testing.T) {
	defer monitoring.Mute()()

	bus := NewBus(0)
	frame := &vision.Frame{LaneID: "a", Width: 1, Height: 1, Pix: []uint8{0}}
	bus.PublishTimeout(Item{LaneID: "a", Frame: frame, Count: 1}, time.Second)
	bus.PublishTimeout(Item{LaneID: "a", Frame: frame, Count: 2}, time.Second)
	bus.PublishTimeout(Item{LaneID: "a", Count: 2, Terminal: true}, time.Second)
	bus.PublishTimeout(Item{LaneID: "b", Count: 5, Terminal: true}, time.Second)

	var delivered int
	c := NewConsumer(bus, ConsumerConfig{
		Lanes:       []string{"a", "b"},
		WaitTimeout: 10 * time.Millisecond,
		OnItem:      func(Item) { delivered++ },
	})

	finals := c.Run(context.Background())

	if finals["a"] != 2 || finals["b"] != 5 {
		t.Errorf("finals = %v, want a:2 b:5", finals)
	}
	if delivered != 2 {
		t.Errorf("display hook called %d times, want 2", delivered)
	}
}

func TestConsumerReportsEveryConfiguredLane(t *testing.T) {
	defer monitoring.Mute()()

	bus := NewBus(0)
	bus.PublishTimeout(Item{LaneID: "a", Count: 3, Terminal: true}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	c := NewConsumer(bus, ConsumerConfig{
		Lanes:       []string{"a", "b"},
		WaitTimeout: 10 * time.Millisecond,
	})

	// Lane b never publishes; cancel once lane a's terminal is folded in.
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	finals := c.Run(ctx)

	if finals["a"] != 3 {
		t.Errorf("finals[a] = %d, want 3", finals["a"])
	}
	if got, ok := finals["b"]; !ok || got != 0 {
		t.Errorf("finals[b] = %d (present %v), want 0 entry", got, ok)
	}
}

func TestConsumerCancellationDrainsWithoutProcessing(t *testing.T) {
	defer monitoring.Mute()()

	bus := NewBus(0)
	frame := &vision.Frame{LaneID: "a", Width: 1, Height: 1, Pix: []uint8{0}}
	for i := int64(1); i <= 5; i++ {
		bus.PublishTimeout(Item{LaneID: "a", Frame: frame, Count: i}, time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var delivered int
	c := NewConsumer(bus, ConsumerConfig{
		Lanes:       []string{"a"},
		WaitTimeout: 10 * time.Millisecond,
		OnItem:      func(Item) { delivered++ },
	})
	finals := c.Run(ctx)

	if delivered != 0 {
		t.Errorf("display hook called %d times on drained items, want 0", delivered)
	}
	if finals["a"] != 5 {
		t.Errorf("finals[a] = %d, want the highest drained count 5", finals["a"])
	}
	if _, ok := bus.TryNext(); ok {
		t.Error("bus not empty after drain")
	}
}

func TestConsumerIgnoresUnknownLane(t *testing.T) {
	defer monitoring.Mute()()

	bus := NewBus(0)
	bus.PublishTimeout(Item{LaneID: "ghost", Count: 9, Terminal: true}, time.Second)
	bus.PublishTimeout(Item{LaneID: "a", Count: 1, Terminal: true}, time.Second)

	c := NewConsumer(bus, ConsumerConfig{
		Lanes:       []string{"a"},
		WaitTimeout: 10 * time.Millisecond,
	})
	finals := c.Run(context.Background())

	if len(finals) != 1 || finals["a"] != 1 {
		t.Errorf("finals = %v, want exactly a:1", finals)
	}
}
