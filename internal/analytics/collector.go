package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/kafka"
)

const (
	defaultBuffer        = 10000
	defaultBatchSize     = 100
	defaultFlushInterval = 2 * time.Second
	finalFlushTimeout    = 5 * time.Second
)

// Publisher is the subset of kafka.Producer the collector needs.
type Publisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Collector buffers events and publishes them in batches, flushing when a
// batch fills up or the flush interval elapses.
type Collector struct {
	publisher     Publisher
	events        chan any
	batchSize     int
	flushInterval time.Duration
	done          chan struct{}
	logger        *slog.Logger
}

func NewCollector(publisher Publisher, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBuffer
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	return &Collector{
		publisher:     publisher,
		events:        make(chan any, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
		logger:        slog.Default().With("component", "analytics-collector"),
	}
}

// Start runs the publishing loop until ctx is cancelled or Close is called.
func (c *Collector) Start(ctx context.Context) {
	go c.loop(ctx)
	c.logger.Info("analytics collector started",
		"buffer", cap(c.events),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

func (c *Collector) loop(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := c.publisher.Publish(ctx, batch...); err != nil {
			c.logger.Error("dropping analytics batch", "events", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				fctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
				flush(fctx)
				cancel()
				return
			}
			batch = append(batch, toKafka(ev))
			if len(batch) >= c.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			c.drain(&batch)
			fctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
			flush(fctx)
			cancel()
			return
		}
	}
}

func (c *Collector) drain(batch *[]kafka.Event) {
	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				return
			}
			*batch = append(*batch, toKafka(ev))
		default:
			return
		}
	}
}

func toKafka(ev any) kafka.Event {
	key := "event"
	if k, ok := ev.(interface{ key() string }); ok {
		key = k.key()
	}
	return kafka.Event{Key: key, Value: ev}
}

// Track enqueues ev, dropping it when the buffer is full.
func (c *Collector) Track(ev any) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("analytics event dropped, buffer full")
	}
}

// Close flushes buffered events and waits for the loop to exit. Track must
// not be called afterwards.
func (c *Collector) Close() {
	close(c.events)
	<-c.done
}
