package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContext(t *testing.T) {
	t.Run("stores and retrieves logger", func(t *testing.T) {
		logger := zap.NewNop()
		ctx := WithContext(context.Background(), logger)

		retrieved := FromContext(ctx)
		assert.Same(t, logger, retrieved)
	})

	t.Run("returns no-op logger when not set", func(t *testing.T) {
		retrieved := FromContext(context.Background())
		require.NotNil(t, retrieved)
	})
}

func TestWithRequestID(t *testing.T) {
	core, observed := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	ctx, enriched := WithRequestID(context.Background(), logger, "req-123")

	assert.Equal(t, "req-123", GetRequestID(ctx))

	enriched.Info("test message")
	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
}

func TestWithOrgID(t *testing.T) {
	core, observed := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	ctx, enriched := WithOrgID(context.Background(), logger, "org-1")

	assert.Equal(t, "org-1", GetOrgID(ctx))

	enriched.Info("scoped")
	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "org-1", entries[0].ContextMap()["organization_id"])
}

func TestWithBranchID(t *testing.T) {
	ctx, _ := WithBranchID(context.Background(), zap.NewNop(), "branch-7")
	assert.Equal(t, "branch-7", GetBranchID(ctx))
}

func TestWithUserID(t *testing.T) {
	ctx, _ := WithUserID(context.Background(), zap.NewNop(), "user-42")
	assert.Equal(t, "user-42", GetUserID(ctx))
}

func TestGetters_EmptyContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetOrgID(ctx))
	assert.Empty(t, GetBranchID(ctx))
	assert.Empty(t, GetUserID(ctx))
}
