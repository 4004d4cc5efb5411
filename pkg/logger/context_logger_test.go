package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextLogger_AddsKnownFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cl := NewContextLogger(zap.New(core))

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithUserID(ctx, "user-1")
	ctx = ContextWithContentID(ctx, "video-1")

	cl.LogRequest(ctx, "POST", "/api/v1/videos/authorize", 200, 3)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "user-1", fields["user_id"])
		assert.Equal(t, "video-1", fields["content_id"])
		assert.Equal(t, int64(200), fields["status_code"])
	}
}

func TestContextLogger_EmptyContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cl := NewContextLogger(zap.New(core))

	cl.LogError(context.Background(), errors.New("boom"), "lookup failed")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "lookup failed", entries[0].Message)
		assert.Equal(t, "boom", entries[0].ContextMap()["error"])
		assert.NotContains(t, entries[0].ContextMap(), "request_id")
	}
}

func TestRequestIDFromContext(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
	assert.Equal(t, "abc", RequestIDFromContext(ContextWithRequestID(context.Background(), "abc")))
}

func TestNew_UnknownLevelFallsBack(t *testing.T) {
	l := New("loud", "json")
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}
