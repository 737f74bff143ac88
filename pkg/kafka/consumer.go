package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// messageReader is the slice of kafka.Reader the read loop depends on.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer wraps a Kafka reader with a worker pool, retry with backoff, and
// an optional dead-letter topic.
type Consumer struct {
	cfg      *ConsumerConfig
	reader   messageReader
	handler  MessageHandler
	msgChan  chan []byte
	stopChan chan struct{}
	stopOnce sync.Once
	readWG   sync.WaitGroup
	workerWG sync.WaitGroup
	dlq      *kafka.Writer
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:    "default",
		Workers:    1,
		BufferSize: 64,
		RetryMax:   3,
		BackoffMin: 50 * time.Millisecond,
		BackoffMax: 2 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	c := &Consumer{
		cfg:      cfg,
		msgChan:  make(chan []byte, cfg.BufferSize),
		stopChan: make(chan struct{}),
	}

	initConsumerMetrics()

	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.LeastBytes{}}
	}

	return c, nil
}

// RegisterHandler registers the message handler; its Topic() is consumed.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	c.handler = handler
}

// Start begins consuming. A handler must be registered first.
func (c *Consumer) Start() error {
	if c.handler == nil {
		return fmt.Errorf("no handler registered")
	}

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers: c.cfg.Brokers,
		Topic:   c.handler.Topic(),
		GroupID: c.cfg.GroupID,
	})

	for i := 0; i < c.cfg.Workers; i++ {
		c.workerWG.Add(1)
		go c.worker()
	}

	c.readWG.Add(1)
	go c.readLoop()

	log.Printf("kafka consumer: started topic=%s workers=%d", c.handler.Topic(), c.cfg.Workers)
	return nil
}

// Stop shuts the consumer down gracefully.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		close(c.stopChan)

		// the read loop sends on msgChan, so it must be gone before the
		// channel closes and the workers drain what is left
		done := make(chan struct{})
		go func() {
			c.readWG.Wait()
			close(c.msgChan)
			c.workerWG.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		case <-done:
		}

		if c.reader != nil {
			if err := c.reader.Close(); err != nil {
				log.Printf("error closing reader: %v", err)
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				log.Printf("error closing dlq writer: %v", err)
			}
		}
	})
	return stopErr
}

func (c *Consumer) readLoop() {
	defer c.readWG.Done()
	topic := c.handler.Topic()

	for {
		select {
		case <-c.stopChan:
			return
		default:
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			msg, err := c.reader.ReadMessage(ctx)
			cancel()
			if err != nil {
				if !errors.Is(err, context.DeadlineExceeded) {
					log.Printf("error reading from topic %s: %v", topic, err)
				}
				continue
			}

			select {
			case c.msgChan <- msg.Value:
				consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgChan)))
			case <-c.stopChan:
				return
			}
		}
	}
}

func (c *Consumer) worker() {
	defer c.workerWG.Done()
	topic := c.handler.Topic()

	for data := range c.msgChan {
		start := time.Now()
		err := c.handleWithRetry(data)
		consumerLatencyHist.WithLabelValues(topic).Observe(time.Since(start).Seconds())
		if err != nil {
			consumerErrsTotal.WithLabelValues(topic).Inc()
			c.deadLetter(data)
			continue
		}
		consumerMsgsTotal.WithLabelValues(topic).Inc()
	}
}

func (c *Consumer) handleWithRetry(data []byte) error {
	backoff := c.cfg.BackoffMin
	var err error
	for attempt := 0; attempt <= c.cfg.RetryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-c.stopChan:
				return err
			}
			backoff *= 2
			if backoff > c.cfg.BackoffMax {
				backoff = c.cfg.BackoffMax
			}
		}
		if err = c.handler.Handle(context.Background(), data); err == nil {
			return nil
		}
	}
	return err
}

func (c *Consumer) deadLetter(data []byte) {
	if c.dlq == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.dlq.WriteMessages(ctx, kafka.Message{Value: data, Time: time.Now()}); err != nil {
		log.Printf("error writing to dlq: %v", err)
	}
}

var (
	consumerMsgsTotal   *prometheus.CounterVec
	consumerErrsTotal   *prometheus.CounterVec
	consumerQueueDepth  *prometheus.GaugeVec
	consumerLatencyHist *prometheus.HistogramVec
	consumerMetricsOnce sync.Once
)

func initConsumerMetrics() {
	consumerMetricsOnce.Do(func() {
		consumerMsgsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zpulse_kafka_consumer_messages_total",
				Help: "Total messages consumed successfully",
			},
			[]string{"topic"},
		)
		consumerErrsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zpulse_kafka_consumer_errors_total",
				Help: "Total messages that exhausted retries",
			},
			[]string{"topic"},
		)
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "zpulse_kafka_consumer_queue_depth",
				Help: "Messages waiting in the worker queue",
			},
			[]string{"topic"},
		)
		consumerLatencyHist = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zpulse_kafka_consumer_handle_seconds",
				Help:    "Handler latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		)
	})
}
