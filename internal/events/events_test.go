package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sampleEvent() Event {
	return Event{
		Type:      TypeActionExecuted,
		Data:      map[string]any{"action": "create_pr"},
		StudyID:   "study-1",
		TrialID:   "trial-1",
		SessionID: "session-1",
		Timestamp: time.Now().UTC(),
	}
}

func TestLogEmitter(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	emitter := NewLogEmitter(zap.New(core))

	require.NoError(t, emitter.Emit(context.Background(), sampleEvent()))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "orchestration event", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, TypeActionExecuted, fields["type"])
	assert.Equal(t, "study-1", fields["study_id"])
	assert.Equal(t, "session-1", fields["session_id"])
}

type stubEmitter struct {
	calls int
	err   error
}

func (s *stubEmitter) Emit(context.Context, Event) error {
	s.calls++
	return s.err
}

func TestMulti(t *testing.T) {
	t.Run("delivers to every emitter", func(t *testing.T) {
		first := &stubEmitter{}
		second := &stubEmitter{}

		require.NoError(t, NewMulti(first, second).Emit(context.Background(), sampleEvent()))
		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 1, second.calls)
	})

	t.Run("keeps going after a failure and returns the first error", func(t *testing.T) {
		errFirst := errors.New("first down")
		first := &stubEmitter{err: errFirst}
		second := &stubEmitter{err: errors.New("second down")}
		third := &stubEmitter{}

		err := NewMulti(first, second, third).Emit(context.Background(), sampleEvent())
		assert.ErrorIs(t, err, errFirst)
		assert.Equal(t, 1, third.calls)
	})

	t.Run("empty multi is a no-op", func(t *testing.T) {
		require.NoError(t, NewMulti().Emit(context.Background(), sampleEvent()))
	})
}
