package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Producer buffers messages in memory and writes them from one goroutine, so Publish
// never blocks a request on the broker unless the buffer is full.
type Producer struct {
	w       *kafka.Writer
	topic   string
	inbox   chan kafka.Message
	closeCh chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		topic:   topic,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the write loop until Close drains the inbox.
func (p *Producer) Start(ctx context.Context) {
	logger := log.With().Str("topic", p.topic).Logger()
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			if err := p.w.WriteMessages(wctx, m); err != nil {
				logger.Error().Err(err).Bytes("key", m.Key).Msg("kafka write failed")
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			logger.Error().Err(err).Msg("kafka writer close")
		}
	}()
}

// Publish drops the message with an error log once Close has been called.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		log.Error().Str("topic", p.topic).Bytes("key", key).Msg("publish after close, event dropped")
		return
	}
	p.inbox <- kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
}

// Close stops accepting messages; the loop flushes what is buffered and exits.
// Calling it again is a no-op.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.inbox)
}

func (p *Producer) WaitClosed() { <-p.closeCh }
