package kafka

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeWriter struct {
	got    []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { f.closed = true; return nil }

func TestWriterProducer_SendMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &WriterProducer{w: w}

	require.NoError(t, p.SendMessage(context.Background(), "loan.mirror", []byte("L1"), []byte(`{"a":1}`)))
	require.Len(t, w.got, 1)
	assert.Equal(t, "loan.mirror", w.got[0].Topic)
	assert.Equal(t, "L1", string(w.got[0].Key))
	assert.False(t, w.got[0].Time.IsZero())

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestWriterProducer_WrapsErrors(t *testing.T) {
	boom := errors.New("leader not available")
	p := &WriterProducer{w: &fakeWriter{err: boom}}

	err := p.SendMessage(context.Background(), "t", nil, nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "kafka write t")
}

func TestLogProducer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogProducer(zap.New(core))

	require.NoError(t, p.SendMessage(context.Background(), "loan.notifications", []byte("k"), []byte("v")))
	assert.Equal(t, 1, logs.FilterMessage("message").Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.SendMessage(ctx, "t", nil, nil), context.Canceled)
}
