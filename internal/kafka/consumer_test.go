package kafka

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.pending) > 0 {
		m := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeReader) commits() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

func run(t *testing.T, c *Consumer, h Handler) (cancel func() error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()
	return func() error {
		stop()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("consumer did not stop")
			return nil
		}
	}
}

func TestConsumer_RetriesFailedMessageBeforeLaterOffsets(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{
		{Partition: 0, Offset: 1}, {Partition: 1, Offset: 10},
		{Partition: 0, Offset: 2}, {Partition: 1, Offset: 11},
		{Partition: 0, Offset: 3},
	}}
	c := newConsumer(r, "order.events", 2)
	c.backoff = time.Millisecond

	var (
		mu       sync.Mutex
		attempts = map[int64]int{}
		handled  []int64
	)
	stop := run(t, c, func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts[m.Offset]++
		if m.Offset == 2 && attempts[m.Offset] < 3 {
			return errors.New("redis down")
		}
		if m.Partition == 0 {
			handled = append(handled, m.Offset)
		}
		return nil
	})

	deadline := time.Now().Add(5 * time.Second)
	for len(r.commits()) < 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := stop(); err != nil {
		t.Fatalf("start: %v", err)
	}

	var p0 []int64
	for _, off := range r.commits() {
		if off < 10 {
			p0 = append(p0, off)
		}
	}
	if fmt.Sprint(p0) != "[1 2 3]" {
		t.Errorf("partition 0 commits = %v, want [1 2 3]", p0)
	}
	mu.Lock()
	defer mu.Unlock()
	if attempts[2] != 3 {
		t.Errorf("offset 2 attempts = %d, want 3", attempts[2])
	}
	if fmt.Sprint(handled) != "[1 2 3]" {
		t.Errorf("partition 0 handled = %v", handled)
	}
	if !r.closed {
		t.Error("reader not closed")
	}
}

func TestConsumer_CancelStopsRetryWithoutCommit(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{{Offset: 1}, {Offset: 2}}}
	c := newConsumer(r, "order.events", 1)
	c.backoff = time.Millisecond

	failing := make(chan struct{}, 1)
	stop := run(t, c, func(context.Context, kafka.Message) error {
		select {
		case failing <- struct{}{}:
		default:
		}
		return errors.New("boom")
	})
	<-failing
	if err := stop(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := r.commits(); len(got) != 0 {
		t.Errorf("committed %v after failures", got)
	}
}

func TestLaneOf(t *testing.T) {
	for p := 0; p < 10; p++ {
		if l := laneOf(p, 3); l < 0 || l >= 3 {
			t.Fatalf("lane of %d = %d", p, laneOf(p, 3))
		}
	}
	if laneOf(4, 3) != laneOf(7, 3) {
		t.Error("partitions 4 and 7 should share a lane of 3")
	}
}

func TestHeader(t *testing.T) {
	m := kafka.Message{Headers: []kafka.Header{{Key: "x-event-type", Value: []byte("OrderPlaced")}}}
	if got := Header(m, "x-event-type"); got != "OrderPlaced" {
		t.Errorf("header = %q", got)
	}
	if got := Header(m, "missing"); got != "" {
		t.Errorf("missing header = %q", got)
	}
}
