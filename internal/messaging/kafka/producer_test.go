package kafka

import (
	"errors"
	"io"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

func headerValue(msg *sarama.ProducerMessage, name string) string {
	for _, h := range msg.Headers {
		if string(h.Key) == name {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducer_Send(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicOrderEvents {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "order-1" {
			return errors.New("unexpected key " + string(key))
		}
		if headerValue(msg, HeaderEventType) != "order.created" {
			return errors.New("missing event type header")
		}
		return nil
	})

	producer := NewProducerFrom(mockProducer, quietLogger())
	err := producer.Send(TopicOrderEvents, "order-1", []byte(`{}`), map[string]string{
		HeaderEventType: "order.created",
	})
	require.NoError(t, err)
	require.NoError(t, producer.Close())
}

func TestProducer_SendError(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := NewProducerFrom(mockProducer, quietLogger())
	err := producer.Send(TopicOrderEvents, "order-1", []byte(`{}`), nil)
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, producer.Close())
}

func TestProducerConfig_SaramaConfig(t *testing.T) {
	cfg := ProducerConfig{Brokers: []string{"localhost:9092"}, ClientID: "order-engine", MaxRetries: 7}.SaramaConfig()

	assert.Equal(t, "order-engine", cfg.ClientID)
	assert.Equal(t, 7, cfg.Producer.Retry.Max)
	assert.True(t, cfg.Producer.Idempotent)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.Equal(t, 1, cfg.Net.MaxOpenRequests)
	assert.NoError(t, cfg.Validate())
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(ProducerConfig{})
	assert.Error(t, err)
}

func TestProducer_CloseNil(t *testing.T) {
	var producer *Producer
	assert.NoError(t, producer.Close())
}
