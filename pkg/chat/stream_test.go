package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/pkg/chat"
)

func startStream(t *testing.T, model *scriptedModel) (*chat.Stream, fixture) {
	t.Helper()
	f := newFixture(t, model, chat.OrchestratorConfig{})
	s, err := f.orch.ChatStream(context.Background(), "hola", nil, nil, nil)
	require.NoError(t, err)
	return s, f
}

func TestStreamAbortAfterTwoChunks(t *testing.T) {
	model := &scriptedModel{chunks: []string{"Hola", " mundo", " que", " no", " llega"}}
	s, f := startStream(t, model)
	ctx := context.Background()

	chunk, ok := s.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "Hola", chunk)
	chunk, ok = s.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, " mundo", chunk)

	s.Abort()

	_, ok = s.Next(ctx)
	assert.False(t, ok)

	c, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo", c.Text)
	assert.Equal(t, 2, c.Chunks)
	assert.True(t, c.Aborted)
	assert.Equal(t, 2, model.deliveredChunks())

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.ChatTurns.WithLabelValues("stream", "aborted")) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStreamAbortAfterGenerationEnded(t *testing.T) {
	model := &scriptedModel{chunks: []string{"a", "b"}}
	s, f := startStream(t, model)
	ctx := context.Background()

	for _, want := range []string{"a", "b"} {
		chunk, ok := s.Next(ctx)
		require.True(t, ok)
		assert.Equal(t, want, chunk)
	}
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.ChatTurns.WithLabelValues("stream", "completed")) == 1
	}, time.Second, 5*time.Millisecond)

	s.Abort()

	c, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, "ab", c.Text)
	assert.Equal(t, 2, c.Chunks)
	assert.False(t, c.Aborted)
}

func TestStreamDrainsToCompletion(t *testing.T) {
	model := &scriptedModel{chunks: []string{"a", "b", "c"}}
	s, _ := startStream(t, model)

	var got []string
	for {
		chunk, ok := s.Next(context.Background())
		if !ok {
			break
		}
		got = append(got, chunk)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)

	c, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, "abc", c.Text)
	assert.Equal(t, 3, c.Chunks)
	assert.False(t, c.Aborted)

	// Aborting a finished stream changes nothing.
	s.Abort()
	c, err = s.Result()
	require.NoError(t, err)
	assert.False(t, c.Aborted)
}

func TestStreamResultDrains(t *testing.T) {
	s, _ := startStream(t, &scriptedModel{chunks: []string{"x", "y"}})

	c, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, "xy", c.Text)
}

func TestStreamNonStreamingModel(t *testing.T) {
	s, _ := startStream(t, &scriptedModel{chunks: []string{"whole ", "answer"}, ignoreCB: true})

	chunk, ok := s.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, "whole answer", chunk)

	c, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, c.Chunks)
}

func TestStreamFailure(t *testing.T) {
	s, _ := startStream(t, &scriptedModel{err: errors.New("model offline")})

	_, ok := s.Next(context.Background())
	assert.False(t, ok)
	c, err := s.Result()
	assert.ErrorIs(t, err, models.ErrCompletionFailed)
	assert.Empty(t, c.Text)
}

func TestStreamFailureMidway(t *testing.T) {
	s, _ := startStream(t, &scriptedModel{chunks: []string{"partial", " more"}, err: errors.New("reset"), failAfter: 1})

	chunk, ok := s.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, "partial", chunk)

	c, err := s.Result()
	assert.ErrorIs(t, err, models.ErrCompletionFailed)
	assert.Empty(t, c.Text, "a failed completion carries no partial text")
}

func TestStreamCancelledByConsumerContext(t *testing.T) {
	model := &scriptedModel{chunks: []string{"uno", "dos", "tres"}}
	s, _ := startStream(t, model)

	chunk, ok := s.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, "uno", chunk)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok = s.Next(ctx)
	assert.False(t, ok)

	c, err := s.Result()
	require.NoError(t, err)
	assert.True(t, c.Aborted)
	assert.Equal(t, "uno", c.Text)
}
