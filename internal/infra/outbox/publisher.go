package outbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/m04kA/SMC-AppointmentService/pkg/metrics"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// PublisherConfig настройки publisher'а
type PublisherConfig struct {
	Brokers     string        // адреса брокеров через запятую
	TopicPrefix string        // префикс kafka-топиков
	PollEvery   time.Duration // период опроса outbox таблицы
	BatchSize   int           // максимум событий за итерацию
}

// Publisher фоновый публикатор outbox-событий в kafka
// Читает неопубликованные события батчами, отправляет в топик по типу события
// и помечает опубликованными в одной транзакции с чтением
type Publisher struct {
	repo      *Repository
	txManager TransactionManager
	metrics   *metrics.Metrics
	logger    Logger

	brokers     []string
	topicPrefix string
	pollEvery   time.Duration
	batchSize   int
}

// NewPublisher создает новый publisher
// metrics может быть nil, если метрики отключены
func NewPublisher(repo *Repository, txManager TransactionManager, m *metrics.Metrics, logger Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}

	return &Publisher{
		repo:        repo,
		txManager:   txManager,
		metrics:     m,
		logger:      logger,
		brokers:     splitBrokers(cfg.Brokers),
		topicPrefix: cfg.TopicPrefix,
		pollEvery:   cfg.PollEvery,
		batchSize:   cfg.BatchSize,
	}
}

// Run запускает цикл публикации до отмены контекста
func (p *Publisher) Run(ctx context.Context) {
	if len(p.brokers) == 0 {
		p.logger.Warn("Outbox publisher disabled (no kafka brokers configured)")
		return
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(p.brokers...),
		Balancer: &kafka.Hash{},
	}
	defer writer.Close()

	p.logger.Info("Outbox publisher started (brokers=%s, poll=%s, batch=%d)",
		strings.Join(p.brokers, ","), p.pollEvery, p.batchSize)

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox publisher stopped")
			return
		case <-ticker.C:
			if err := p.publishBatch(ctx, writer); err != nil {
				p.logger.Error("Outbox publish failed: %v", err)
			}
		}
	}
}

// publishBatch публикует один батч событий
// Чтение, отправка и пометка происходят в одной транзакции: при падении
// отправки события остаются неопубликованными и будут повторены
func (p *Publisher) publishBatch(ctx context.Context, writer *kafka.Writer) error {
	err := p.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		events, err := p.repo.FetchUnpublished(txCtx, p.batchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		messages := make([]kafka.Message, 0, len(events))
		for _, event := range events {
			messages = append(messages, kafka.Message{
				Topic: p.topicFor(event.EventType),
				Key:   []byte(fmt.Sprintf("%d", event.AggregateID)),
				Value: event.Payload,
				Headers: []kafka.Header{
					{Key: "event_id", Value: []byte(event.EventID)},
					{Key: "event_type", Value: []byte(event.EventType)},
				},
			})
		}

		if err := writer.WriteMessages(ctx, messages...); err != nil {
			return fmt.Errorf("outbox: write kafka messages: %w", err)
		}

		ids := make([]int64, 0, len(events))
		for _, event := range events {
			ids = append(ids, event.ID)
			if p.metrics != nil {
				p.metrics.IncOutboxPublished(p.topicFor(event.EventType))
			}
		}

		p.logger.Info("Outbox: published %d events", len(events))
		return p.repo.MarkPublished(txCtx, ids)
	})
	if err != nil {
		return err
	}

	if p.metrics != nil {
		pending, err := p.repo.CountPending(ctx)
		if err == nil {
			p.metrics.SetOutboxPending(pending)
		}
	}

	return nil
}

// topicFor собирает имя топика: "<prefix>.<event_type>"
func (p *Publisher) topicFor(eventType string) string {
	if p.topicPrefix == "" {
		return eventType
	}
	return p.topicPrefix + "." + eventType
}

// splitBrokers разбирает список брокеров из строки конфигурации
func splitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
