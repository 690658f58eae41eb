package logger_test

import (
	"context"
	"testing"

	"github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Parallel()

	scoped, err := logger.New(logger.Config{Level: "debug", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	base := logger.NewNop()

	tests := []struct {
		name string
		ctx  context.Context
		want logger.Logger
	}{
		{name: "carried logger wins", ctx: logger.WithContext(context.Background(), scoped), want: scoped},
		{name: "empty context uses base", ctx: context.Background(), want: base},
		{name: "nil logger uses base", ctx: logger.WithContext(context.Background(), nil), want: base},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, logger.FromContext(tt.ctx, base))
		})
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	t.Parallel()

	l, err := logger.New(logger.Config{Format: "console", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)

	child := l.With(logger.Int("website_id", 7))
	child.Info("console entry")
	assert.NotNil(t, child)
}
