package kafka

import (
	"context"
	"errors"
	"sync"

	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/logger"
	"github.com/segmentio/kafka-go"
)

// Handler returns nil only when the message was processed and may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       messageReader
	workers int
	log     *logger.Logger
}

func NewConsumer(brokers []string, group string, topics []string, workers int, log *logger.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // synchronous commits
	})
	return newConsumer(r, workers, log)
}

func newConsumer(r messageReader, workers int, log *logger.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, log: log}
}

type partition struct {
	topic string
	id    int
}

// Start fetches until ctx is done, fanning messages out to the worker pool.
//
// One partition always lands on the same worker, so its messages are handled
// in offset order. Committing an offset also commits everything before it,
// so after a handler failure nothing later on that partition is committed in
// this session: the failed message is fetched again after the next rebalance
// or restart. Handlers must tolerate seeing the later messages twice.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	queues := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan kafka.Message, 4)
		wg.Add(1)
		go func(id int, in <-chan kafka.Message) {
			defer wg.Done()
			failed := make(map[partition]int64)
			for m := range in {
				p := partition{m.Topic, m.Partition}
				if err := h(ctx, m); err != nil {
					if _, ok := failed[p]; !ok {
						failed[p] = m.Offset
					}
					c.log.Error("kafka.handle", err, map[string]any{
						"worker": id, "topic": m.Topic, "partition": m.Partition, "offset": m.Offset,
					})
					continue
				}
				if at, ok := failed[p]; ok {
					c.log.Warn("kafka.commit_held", nil, map[string]any{
						"topic": m.Topic, "partition": m.Partition, "offset": m.Offset, "failed_offset": at,
					})
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
					c.log.Error("kafka.commit", err, map[string]any{"topic": m.Topic, "offset": m.Offset})
				}
			}
		}(i, queues[i])
	}
	stop := func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		select {
		case queues[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}
