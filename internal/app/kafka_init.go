package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/jaikishore143/ecommerce-backennd/internal/messaging/kafka"
	"github.com/jaikishore143/ecommerce-backennd/internal/version"
)

// publishers: паблишеры outbox поверх одного Kafka producer.
type publishers struct {
	producer   *kafka.Producer
	events     *kafka.OutboxTopicPublisher
	deadLetter *kafka.OutboxTopicPublisher
}

// initKafka подключает producer, если брокеры заданы. Без Kafka процесс продолжает
// работать: события остаются pending в outbox и будут опубликованы после подключения.
func initKafka(cfg Config, logger *log.Entry) *publishers {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka brokers are not configured, outbox publishing disabled")
		return nil
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:  cfg.KafkaBrokers,
		ClientID: "order-engine-" + version.Current().Version,
	})
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil
	}

	logger.WithFields(log.Fields{
		"brokers":   cfg.KafkaBrokers,
		"topic":     cfg.KafkaTopic,
		"dlq_topic": cfg.KafkaDLQTopic,
	}).Info("kafka producer initialized")

	return newPublishers(cfg, producer)
}

// newPublishers собирает паблишеры поверх producer. Пустой KafkaDLQTopic отключает
// dead letter: иначе NewOutboxPublisher подставил бы топик событий.
func newPublishers(cfg Config, producer *kafka.Producer) *publishers {
	pubs := &publishers{
		producer: producer,
		events:   kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
	}
	if strings.TrimSpace(cfg.KafkaDLQTopic) != "" {
		pubs.deadLetter = kafka.NewOutboxPublisher(producer, cfg.KafkaDLQTopic)
	}
	return pubs
}

// close закрывает producer, если он был создан.
func (p *publishers) close(logger *log.Entry) {
	if p == nil {
		return
	}
	if err := p.producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}
