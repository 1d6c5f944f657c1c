package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/CompliSense/pkg/errors"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func (m *mockKafkaWriter) Stats() kafka.WriterStats {
	return kafka.WriterStats{}
}

func newTestProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:         []string{"localhost:9092"},
		MaxMessageBytes: 1024 * 1024,
	}
}

func newTestProducerMessage(topic, key, value string) *ProducerMessage {
	return &ProducerMessage{
		Topic: topic,
		Key:   []byte(key),
		Value: []byte(value),
	}
}

func newTestProducer(writer WriterInterface) *Producer {
	return &Producer{
		writer:  writer,
		config:  newTestProducerConfig(),
		logger:  logging.NewNopLogger(),
		metrics: &producerMetrics{},
	}
}

func TestValidateProducerConfig_Valid(t *testing.T) {
	assert.NoError(t, ValidateProducerConfig(newTestProducerConfig()))
}

func TestValidateProducerConfig_EmptyBrokers(t *testing.T) {
	cfg := newTestProducerConfig()
	cfg.Brokers = nil
	assert.Error(t, ValidateProducerConfig(cfg))
}

func TestValidateProducerConfig_NegativeRetries(t *testing.T) {
	cfg := newTestProducerConfig()
	cfg.MaxRetries = -1
	assert.Error(t, ValidateProducerConfig(cfg))
}

func TestPublish_Success(t *testing.T) {
	var captured []kafka.Message
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			captured = msgs
			return nil
		},
	})

	msg := newTestProducerMessage(TopicDecisionRecorded, "Meridian Capital", `{"analysis_id":"a1"}`)
	msg.Headers = map[string]string{"event_type": TopicDecisionRecorded}

	err := p.Publish(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, captured, 1)
	assert.Equal(t, TopicDecisionRecorded, captured[0].Topic)
	assert.Equal(t, "Meridian Capital", string(captured[0].Key))
	assert.Equal(t, `{"analysis_id":"a1"}`, string(captured[0].Value))
	require.Len(t, captured[0].Headers, 1)
	assert.Equal(t, "event_type", captured[0].Headers[0].Key)

	snap := p.GetMetrics()
	assert.Equal(t, int64(1), snap.MessagesSent)
	assert.False(t, snap.LastSentAt.IsZero())
}

func TestPublish_ValidationErrors(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	ctx := context.Background()

	assert.Error(t, p.Publish(ctx, &ProducerMessage{Value: []byte("v")}))
	assert.Error(t, p.Publish(ctx, &ProducerMessage{Topic: "t"}))

	big := make([]byte, 2*1024*1024)
	assert.Error(t, p.Publish(ctx, &ProducerMessage{Topic: "t", Value: big}))
}

func TestPublish_WriteFailure(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			return errors.New("write failed")
		},
	})

	err := p.Publish(context.Background(), newTestProducerMessage("t", "k", "v"))
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeMessageQueueError))
	assert.Equal(t, int64(1), p.GetMetrics().MessagesFailed)
}

func TestPublish_AfterClose(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	require.NoError(t, p.Close())

	err := p.Publish(context.Background(), newTestProducerMessage("t", "k", "v"))
	assert.Equal(t, ErrProducerClosed, err)
}

func TestPublishBatch_AllSucceed(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})

	res, err := p.PublishBatch(context.Background(), []*ProducerMessage{
		newTestProducerMessage("t", "1", "a"),
		newTestProducerMessage("t", "2", "b"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Zero(t, res.Failed)
}

func TestPublishBatch_PartialFailure(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			errs := make(kafka.WriteErrors, len(msgs))
			errs[1] = errors.New("broker rejected")
			return errs
		},
	})

	res, err := p.PublishBatch(context.Background(), []*ProducerMessage{
		newTestProducerMessage("t", "1", "a"),
		newTestProducerMessage("t", "2", "b"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.Equal(t, "t", res.Errors[0].Topic)
}

func TestPublishBatch_TotalFailure(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			return errors.New("brokers unreachable")
		},
	})

	res, err := p.PublishBatch(context.Background(), []*ProducerMessage{
		newTestProducerMessage("t", "1", "a"),
		newTestProducerMessage("t", "2", "b"),
	})
	require.NoError(t, err)
	assert.Zero(t, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, -1, res.Errors[0].Index)
}

func TestPublishBatch_Empty(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	_, err := p.PublishBatch(context.Background(), nil)
	assert.Error(t, err)
}

func TestPublishAsync_RoutesErrorToHandler(t *testing.T) {
	handled := make(chan error, 1)

	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			return errors.New("write failed")
		},
	})
	p.config.AsyncErrorHandler = func(err error, msg *ProducerMessage) {
		handled <- err
	}

	p.PublishAsync(context.Background(), newTestProducerMessage("t", "k", "v"))

	select {
	case err := <-handled:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for async error handler")
	}
}

func TestProducerClose_Idempotent(t *testing.T) {
	closes := 0
	p := newTestProducer(&mockKafkaWriter{
		closeFunc: func() error {
			closes++
			return nil
		},
	})

	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
	assert.Equal(t, 1, closes)
}
