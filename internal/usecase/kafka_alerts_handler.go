package usecase

import (
	"context"
	"encoding/json"

	"ZPulse/internal/domain/models"
	domrepo "ZPulse/internal/domain/repository"
	pkgkafka "ZPulse/pkg/kafka"
)

// KafkaAlertsHandler consumes alert messages from Kafka and writes them to
// the alert store. Runs in deployments where publication and persistence are
// split across processes.
type KafkaAlertsHandler struct {
	topic   string
	store   domrepo.AlertStore
	metrics domrepo.Metrics
}

func NewKafkaAlertsHandler(topic string, store domrepo.AlertStore, metrics domrepo.Metrics) *KafkaAlertsHandler {
	return &KafkaAlertsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaAlertsHandler) Topic() string { return h.topic }

func (h *KafkaAlertsHandler) Handle(ctx context.Context, b []byte) error {
	var a models.Alert
	if err := json.Unmarshal(b, &a); err != nil {
		h.metrics.RecordDrop("consumer_unmarshal")
		return err
	}
	if err := h.store.Store(ctx, &a); err != nil {
		h.metrics.RecordDrop("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaAlertsHandler)(nil)
