package kafka

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

// Handler returns nil only when the message is fully processed and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const maxBackoff = 10 * time.Second

type Consumer struct {
	r       reader
	topic   string
	workers int
	backoff time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // commit per message after the handler succeeds
	})
	return newConsumer(r, topic, workers)
}

func newConsumer(r reader, topic string, workers int) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, topic: topic, workers: workers, backoff: 200 * time.Millisecond}
}

// Start fetches messages until ctx is cancelled. Each partition is pinned to one worker,
// which handles its messages in offset order. A failing message is retried with backoff
// until it succeeds or ctx ends, and nothing later on its partition is committed before it.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()
	logger := log.With().Str("topic", c.topic).Logger()

	g, gctx := errgroup.WithContext(ctx)
	lanes := make([]chan kafka.Message, c.workers)
	for i := range lanes {
		lane := make(chan kafka.Message, 4)
		lanes[i] = lane
		g.Go(func() error {
			for m := range lane {
				if !c.handle(gctx, logger, h, m) {
					return nil
				}
				if err := c.r.CommitMessages(gctx, m); err != nil && gctx.Err() == nil {
					logger.Error().Err(err).Int("partition", m.Partition).Int64("offset", m.Offset).Msg("commit failed")
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, lane := range lanes {
				close(lane)
			}
		}()
		for {
			m, err := c.r.FetchMessage(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			select {
			case lanes[laneOf(m.Partition, len(lanes))] <- m:
			case <-gctx.Done():
				return nil
			}
		}
	})
	return g.Wait()
}

// handle runs h until it succeeds. It reports false when ctx ended first.
func (c *Consumer) handle(ctx context.Context, logger zerolog.Logger, h Handler, m kafka.Message) bool {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		logger.Error().Err(err).Int("partition", m.Partition).Int64("offset", m.Offset).
			Int("attempt", attempt).Dur("retry_in", wait).Msg("handler failed")
		sleep(ctx, wait)
		if ctx.Err() != nil {
			return false
		}
		if wait *= 2; wait > maxBackoff {
			wait = maxBackoff
		}
	}
}

func laneOf(partition, n int) int {
	if partition < 0 {
		partition = -partition
	}
	return partition % n
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
