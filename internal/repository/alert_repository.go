package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ZPulse/internal/domain/models"
	"ZPulse/internal/domain/repository"
	pkgkafka "ZPulse/pkg/kafka"
)

// ClickHouseAlertStore persists emitted alerts.
type ClickHouseAlertStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseAlertStore creates ClickHouse-backed alert storage.
func NewClickHouseAlertStore(db *sql.DB, table string) repository.AlertStore {
	return &ClickHouseAlertStore{db: db, table: table}
}

func (s *ClickHouseAlertStore) Store(ctx context.Context, a *models.Alert) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (detected_at, symbol, price, zscore, zscore_trend, timeframe, lambda, extrapolated_price, samples_ago, action, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.table)
	_, err := s.db.ExecContext(ctx, q,
		a.DetectedAt,
		a.Symbol,
		a.Price,
		a.ZScore,
		a.ZScoreTrend,
		a.Timeframe,
		a.Lambda,
		a.ExtrapolatedPrice,
		int32(a.SamplesAgo),
		string(a.Action),
		a.SequenceNo,
	)
	if err != nil {
		return fmt.Errorf("store alert: %w", err)
	}
	return nil
}

func (s *ClickHouseAlertStore) Recent(ctx context.Context, symbol string, limit int) ([]*models.Alert, error) {
	q := fmt.Sprintf(
		"SELECT detected_at, symbol, price, zscore, zscore_trend, timeframe, lambda, extrapolated_price, samples_ago, action, seq FROM %s",
		s.table)
	args := []interface{}{}
	if symbol != "" {
		q += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	q += " ORDER BY detected_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		var a models.Alert
		var samplesAgo int32
		var action string
		if err := rows.Scan(&a.DetectedAt, &a.Symbol, &a.Price, &a.ZScore, &a.ZScoreTrend,
			&a.Timeframe, &a.Lambda, &a.ExtrapolatedPrice, &samplesAgo, &action, &a.SequenceNo); err != nil {
			return nil, err
		}
		a.SamplesAgo = int(samplesAgo)
		a.Action = models.Action(action)
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

func (s *ClickHouseAlertStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseAlertStore) Close() error {
	return nil // pool managed by pkg client
}

// ClickHouseTickReader reads historical ticks for the replay source.
type ClickHouseTickReader struct {
	db    *sql.DB
	table string
}

// NewClickHouseTickReader creates a tick reader over the given table.
func NewClickHouseTickReader(db *sql.DB, table string) repository.TickReader {
	return &ClickHouseTickReader{db: db, table: table}
}

func (r *ClickHouseTickReader) ReadWindow(ctx context.Context, symbols []string, from, to time.Time) ([]*models.Tick, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols for replay window")
	}

	placeholders := ""
	args := make([]interface{}, 0, len(symbols)+2)
	for i, s := range symbols {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, s)
	}
	args = append(args, from, to)

	q := fmt.Sprintf(
		"SELECT symbol, ts, price, volume FROM %s WHERE symbol IN (%s) AND ts >= ? AND ts < ? ORDER BY ts ASC",
		r.table, placeholders)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	var ticks []*models.Tick
	for rows.Next() {
		var t models.Tick
		var ts time.Time
		if err := rows.Scan(&t.Symbol, &ts, &t.Price, &t.Volume); err != nil {
			return nil, err
		}
		t.Timestamp = ts.Unix()
		ticks = append(ticks, &t)
	}
	return ticks, rows.Err()
}

// KafkaAlertPublisher publishes alerts to Kafka keyed by symbol, so a single
// partition carries all alerts for a symbol in order.
type KafkaAlertPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaAlertPublisher creates a Kafka-backed alert publisher.
func NewKafkaAlertPublisher(producer *pkgkafka.Producer, topic string) repository.AlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

func (p *KafkaAlertPublisher) Publish(ctx context.Context, a *models.Alert) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(a.Symbol), a); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

func (p *KafkaAlertPublisher) Close() error {
	return p.producer.Close()
}
