package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mediacheck/truthscan-service/internal/retry"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	JobRoutingKey    = "media.analysis"
	StatusRoutingKey = "media.status"
)

type MessageHandler func(ctx context.Context, body []byte) error

type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	workerCount int
	backoff     retry.Policy
	handler     MessageHandler
	logger      *zap.Logger
	wg          sync.WaitGroup
}

type ConsumerConfig struct {
	URL         string
	Queue       string
	Exchange    string
	DLQ         string
	StatusQueue string
	Prefetch    int
	WorkerCount int
	// Backoff paces requeues; only BaseDelay, jitter and MaxDelay are used.
	Backoff retry.Policy
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := DeclareTopology(ch, cfg.Exchange, cfg.Queue, cfg.StatusQueue, cfg.DLQ); err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	workers := cfg.WorkerCount
	if workers < 1 {
		workers = 1
	}

	return &Consumer{
		conn:        conn,
		channel:     ch,
		queue:       cfg.Queue,
		workerCount: workers,
		backoff:     cfg.Backoff,
		handler:     handler,
		logger:      logger,
	}, nil
}

// DeclareTopology declares the topic exchange, the job, status and dead
// letter queues, and binds the first two to their routing keys.
func DeclareTopology(ch *amqp.Channel, exchange, jobQueue, statusQueue, dlq string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{jobQueue, dlq, statusQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	if err := ch.QueueBind(jobQueue, JobRoutingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind job queue: %w", err)
	}
	if err := ch.QueueBind(statusQueue, StatusRoutingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind status queue: %w", err)
	}
	return nil
}

// Start runs the worker pool until ctx is cancelled or the broker closes the
// delivery channel, then waits for in-flight jobs.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.logger.Info("analysis consumer running",
		zap.String("queue", c.queue),
		zap.Int("workers", c.workerCount),
	)

	for id := 0; id < c.workerCount; id++ {
		id := id
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.runWorker(ctx, c.logger.With(zap.Int("worker_id", id)), deliveries)
		}()
	}

	c.wg.Wait()
	c.logger.Info("analysis consumer drained", zap.Bool("cancelled", ctx.Err() != nil))
	return nil
}

func (c *Consumer) runWorker(ctx context.Context, log *zap.Logger, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Warn("delivery channel closed by broker")
				return
			}
			c.handle(ctx, d, log)
		}
	}
}

// handle acks on success. Failed deliveries wait out the backoff for their
// attempt and are then requeued; a shutdown cuts the wait short.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	err := c.handler(ctx, d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error("ack failed", zap.Error(ackErr), zap.Uint64("delivery_tag", d.DeliveryTag))
		}
		return
	}

	attempt := attemptFromHeaders(d)
	delay := c.backoff.Backoff(attempt)
	log.Warn("analysis job failed, requeueing",
		zap.Error(err),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
	)
	c.requeueAfter(ctx, d, delay)
}

func (c *Consumer) requeueAfter(ctx context.Context, d amqp.Delivery, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	_ = d.Nack(false, true)
}

// attemptFromHeaders counts dead-letter rounds, falling back to the
// redelivered flag for plain requeues.
func attemptFromHeaders(d amqp.Delivery) int {
	if xDeath, ok := d.Headers["x-death"]; ok {
		if deaths, ok := xDeath.([]interface{}); ok && len(deaths) > 0 {
			return len(deaths) + 1
		}
	}
	if d.Redelivered {
		return 2
	}
	return 1
}

// Healthy reports whether the broker connection is still open.
func (c *Consumer) Healthy() error {
	if c.conn == nil || c.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection closed")
	}
	return nil
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
