package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_PublishJSON(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "audit", logger)

	err := p.PublishJSON(context.Background(), "subject-1", map[string]string{"event_type": "merge_subjects"}, map[string]any{"id": "a1"})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "subject-1", string(msg.Key))
	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "a1", body["id"])

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, SchemaVersion, headers["schema_version"])
	assert.Equal(t, "merge_subjects", headers["event_type"])
}

func TestProducer_PublishJSONError(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	p := NewProducerWithWriter(&fakeWriter{err: errors.New("broker down")}, "audit", logger)

	err := p.PublishJSON(context.Background(), "k", nil, "v")
	assert.EqualError(t, err, "broker down")
}
