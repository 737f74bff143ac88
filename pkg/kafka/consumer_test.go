package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type firehoseReader struct{}

func (firehoseReader) ReadMessage(_ context.Context) (kafka.Message, error) {
	return kafka.Message{Value: []byte("tick")}, nil
}

func (firehoseReader) Close() error { return nil }

type countingHandler struct {
	mu sync.Mutex
	n  int
}

func (h *countingHandler) Topic() string { return "alerts" }

func (h *countingHandler) Handle(_ context.Context, _ []byte) error {
	time.Sleep(time.Millisecond)
	h.mu.Lock()
	h.n++
	h.mu.Unlock()
	return nil
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}

// A reader that outpaces the workers keeps the read loop parked on a full
// queue; Stop must let it exit before the queue closes instead of pulling the
// channel out from under a pending send.
func TestConsumerStopWithSaturatedQueue(t *testing.T) {
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerWorkers(2),
		WithConsumerBufferSize(1),
	)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	h := &countingHandler{}
	c.RegisterHandler(h)

	c.reader = firehoseReader{}
	for i := 0; i < c.cfg.Workers; i++ {
		c.workerWG.Add(1)
		go c.worker()
	}
	c.readWG.Add(1)
	go c.readLoop()

	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if h.count() == 0 {
		t.Fatalf("expected handled messages before shutdown")
	}
}

func TestConsumerStartRequiresHandler(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	if err := c.Start(); err == nil {
		t.Fatalf("expected error without a registered handler")
	}
}
