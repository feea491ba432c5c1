package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuffered(t *testing.T, env string, level string) (Logger, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, env, level)
	require.NoError(t, err)
	return l, &buf
}

func TestLogger_parseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"Info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLevel(tt.input)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, value := range []string{"", "uknown", "trace"} {
		_, err := parseLevel(value)
		require.Error(t, err, "level %q must be rejected", value)
	}
}

func TestLogger_New(t *testing.T) {
	t.Run("production writes json", func(t *testing.T) {
		l, buf := newBuffered(t, EnvProduction, LevelInfo)

		l.Info("booking accepted", "booking_id", "42")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "one json object per line")
		assert.Equal(t, "booking accepted", entry["msg"])
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "42", entry["booking_id"])

		source, ok := entry["source"].(map[string]any)
		require.True(t, ok, "source is attached")
		assert.Equal(t, "logger_test.go", source["file"], "source is the caller with directory stripped")
	})

	t.Run("development writes text", func(t *testing.T) {
		l, buf := newBuffered(t, EnvDevelopment, LevelInfo)

		l.WithGroup("wallet").Info("deposit", "amount", 5000)

		assert.Contains(t, buf.String(), "level=INFO")
		assert.Contains(t, buf.String(), "wallet.amount=5000")
	})

	t.Run("unknown environment falls back to text", func(t *testing.T) {
		l, buf := newBuffered(t, "staging", LevelInfo)

		l.Info("hello")

		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("unknown level fail", func(t *testing.T) {
		_, err := New(EnvProduction, "loud")
		require.Error(t, err)
	})
}

func TestLogger_Levels(t *testing.T) {
	emit := map[string]func(Logger){
		LevelDebug: func(l Logger) { l.Debug("test") },
		LevelInfo:  func(l Logger) { l.Info("test") },
		LevelWarn:  func(l Logger) { l.Warn("test") },
		LevelError: func(l Logger) { l.Error("test") },
	}
	order := []string{LevelDebug, LevelInfo, LevelWarn, LevelError}

	for i, configured := range order {
		for j, message := range order {
			t.Run(configured+" logger gets "+message, func(t *testing.T) {
				l, buf := newBuffered(t, EnvDevelopment, configured)

				emit[message](l)

				assert.Equal(t, j >= i, buf.Len() > 0)
			})
		}
	}
}

func TestLogger_With(t *testing.T) {
	l, buf := newBuffered(t, EnvDevelopment, LevelInfo)

	l.With("component", "ledger").Info("deposit completed")

	assert.Contains(t, buf.String(), "component=ledger")
	assert.Contains(t, buf.String(), "deposit completed")
}

func TestLogger_Redacts(t *testing.T) {
	l, buf := newBuffered(t, EnvProduction, LevelDebug)

	l.With("token", "eyJhbGciOi").Debug("login", "phone", "771234567", "password", "hunter22", "PIN", "1234")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "771234567", entry["phone"])
	assert.Equal(t, redacted, entry["password"])
	assert.Equal(t, redacted, entry["PIN"])
	assert.Equal(t, redacted, entry["token"])
	assert.NotContains(t, buf.String(), "hunter22")
}

func TestLogger_NoOp(t *testing.T) {
	l := NewNoOpLogger()

	assert.NotPanics(t, func() {
		l.With("k", "v").WithGroup("g").Error("nothing happens")
	})
}

func TestLogger_Context(t *testing.T) {
	l, buf := newBuffered(t, EnvDevelopment, LevelInfo)

	_, ok := FromContext(context.Background())
	require.False(t, ok)

	ctx := NewContext(context.Background(), l.With("request_id", "req-1"))
	fromCtx, ok := FromContext(ctx)
	require.True(t, ok)

	fromCtx.Error("request failed")

	assert.Contains(t, buf.String(), "request_id=req-1")
	assert.Contains(t, buf.String(), "request failed")
}
