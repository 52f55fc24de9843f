package common

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidInputError(t *testing.T) {
	err := fmt.Errorf("select: %w", NewInvalidInput("bank", "B-17", "missing date"))

	assert.ErrorIs(t, err, ErrInvalidInput)

	var inputErr *InvalidInputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "B-17", inputErr.TransactionID)
	assert.Equal(t, "bank", inputErr.Side)
	assert.Contains(t, err.Error(), `"B-17"`)
}

func TestUserError(t *testing.T) {
	err := NewUserError("Could not load model", ErrModelPersistence)

	assert.ErrorIs(t, err, ErrModelPersistence)
	assert.Equal(t, "Could not load model: model persistence failed", err.Error())
	assert.Equal(t, "plain", NewUserError("plain", nil).Error())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLoggerTo(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	require.NoError(t, SetupLoggerTo(&buf, slog.LevelInfo, "json"))

	LogInfo("run finished", Fields{"matches": 3, "bank": 4})
	LogDebug("hidden", nil)

	out := buf.String()
	assert.Contains(t, out, `"msg":"run finished"`)
	assert.Contains(t, out, `"matches":3`)
	assert.NotContains(t, out, "hidden")

	assert.Error(t, SetupLoggerTo(&buf, slog.LevelInfo, "xml"))
}
