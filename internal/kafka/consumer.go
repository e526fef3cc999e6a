package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/logger"
	"github.com/cespare/xxhash/v2"
	"github.com/segmentio/kafka-go"
)

// Handler returns nil only when m was processed and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
	log     *slog.Logger

	// Retries bounds handler attempts per message before it is logged and skipped.
	Retries int
	Backoff time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:       r,
		workers: workers,
		log:     logger.Or(log).With(slog.String("topic", topic), slog.String("group", group)),
		Retries: 3,
		Backoff: 200 * time.Millisecond,
	}
}

// Start dispatches messages to workers until ctx is cancelled. Messages with
// the same key go to the same worker, so one order's events are handled in
// publish order. A partition's offset is committed only once every earlier
// message fetched from it has been handled.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	track := newOffsets()
	acks := make(chan kafka.Message, 128)
	committed := make(chan struct{})
	go func() {
		defer close(committed)
		for m := range acks {
			if next, ok := track.done(m); ok {
				c.commit(ctx, next)
			}
		}
	}()

	jobs := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range jobs {
		jobs[i] = make(chan kafka.Message, 128)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				if c.process(ctx, h, m) {
					acks <- m
				}
			}
		}(jobs[i])
	}
	stop := func() {
		for _, ch := range jobs {
			close(ch)
		}
		wg.Wait()
		close(acks)
		<-committed
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		track.add(m)
		select {
		case jobs[Slot(m.Key, c.workers)] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

// process runs h with retries. It reports false only when ctx ended first,
// leaving m uncommitted for redelivery.
func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message) bool {
	var err error
	for attempt := 0; attempt <= c.Retries; attempt++ {
		if err = h(ctx, m); err == nil {
			return true
		}
		c.log.Warn("handler failed",
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
			slog.Int("attempt", attempt+1),
			slog.Any("err", err))
		if attempt == c.Retries {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.Backoff * time.Duration(attempt+1)):
		}
	}
	c.log.Error("message skipped after retries",
		slog.Int("partition", m.Partition),
		slog.Int64("offset", m.Offset),
		slog.Any("err", err))
	return true
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	// work finished during shutdown still gets committed
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.r.CommitMessages(cctx, m); err != nil {
		c.log.Error("commit failed",
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
			slog.Any("err", err))
	}
}

// Slot maps a message key onto one of n workers.
func Slot(key []byte, n int) int {
	if n <= 1 || len(key) == 0 {
		return 0
	}
	return int(xxhash.Sum64(key) % uint64(n))
}
