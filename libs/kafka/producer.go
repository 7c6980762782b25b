package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"log/slog"
)

// Publisher is the outbound event contract. A nil Publisher disables the
// event stream cleanly at the call sites.
type Publisher interface {
	PublishJSON(ctx context.Context, topic, key string, value any) (int32, int64, error)
	Close() error
}

type ProducerMetrics struct {
	PublishTotal   *prometheus.CounterVec
	PublishLatency prometheus.Histogram
}

func NewProducerMetrics(registry *prometheus.Registry) *ProducerMetrics {
	m := &ProducerMetrics{
		PublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_publish_total",
				Help: "Total Kafka publish attempts.",
			},
			[]string{"topic", "status"},
		),
		PublishLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kafka_publish_latency_seconds",
				Help:    "Kafka publish latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	registry.MustRegister(m.PublishTotal, m.PublishLatency)
	return m
}

// SyncProducer publishes JSON payloads through an idempotent sarama sync
// producer.
type SyncProducer struct {
	producer sarama.SyncProducer
	logger   *slog.Logger
	metrics  *ProducerMetrics
}

func NewSyncProducer(brokers []string, logger *slog.Logger, metrics *ProducerMetrics) (*SyncProducer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &SyncProducer{producer: producer, logger: logger, metrics: metrics}, nil
}

func (p *SyncProducer) PublishJSON(ctx context.Context, topic, key string, value any) (int32, int64, error) {
	select {
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	default:
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return 0, 0, fmt.Errorf("marshal kafka payload: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}

	start := time.Now()
	partition, offset, err := p.producer.SendMessage(msg)
	if p.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		p.metrics.PublishTotal.WithLabelValues(topic, status).Inc()
		p.metrics.PublishLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		p.logger.Error("kafka publish failed", "topic", topic, "error", err)
		return 0, 0, fmt.Errorf("kafka publish failed: %w", err)
	}

	return partition, offset, nil
}

func (p *SyncProducer) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
