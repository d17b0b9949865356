package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "字符串", value: "test", want: "test"},
		{name: "错误", value: errors.New("error message"), want: "error message"},
		{name: "整数", value: 123, want: "123"},
		{name: "布尔值", value: true, want: "true"},
		{name: "Stringer", value: 2 * time.Second, want: "2s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.value))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: DebugLevel},
		{in: "INFO", want: InfoLevel},
		{in: "", want: InfoLevel},
		{in: "warning", want: WarnLevel},
		{in: "error", want: ErrorLevel},
		{in: "verbose", want: InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStdLogger_WritesLevelMessageAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLogger("[crud]", WithOutput(&buf), WithLevel(DebugLevel))

	logger.Debug(context.Background(), "debug message", String("key", "value"))
	logger.Info(context.Background(), "info message", Int("count", 123))
	logger.Warn(context.Background(), "warn message", Bool("critical", true))
	logger.Error(context.Background(), "error message", Error(errors.New("boom")))

	output := buf.String()
	for _, want := range []string{
		"[DEBUG] [crud] debug message key=value",
		"[INFO] [crud] info message count=123",
		"[WARN] [crud] warn message critical=true",
		"[ERROR] [crud] error message error=boom",
	} {
		assert.Contains(t, output, want)
	}
}

func TestStdLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLogger("", WithOutput(&buf), WithLevel(WarnLevel))

	logger.Debug(context.Background(), "hidden debug")
	logger.Info(context.Background(), "hidden info")
	logger.Warn(context.Background(), "shown warn")

	output := buf.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "shown warn")
	assert.Equal(t, 1, strings.Count(output, "\n"))
}

func TestStdLogger_WithFields_Immutable(t *testing.T) {
	var buf bytes.Buffer
	base := NewStdLogger("", WithOutput(&buf))
	child := base.WithFields(String("component", "lifecycle"))

	base.Info(context.Background(), "from base")
	child.Info(context.Background(), "from child", String("kind", "User"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "component=")
	assert.Contains(t, lines[1], "from child component=lifecycle kind=User")
}

func TestGlobalLogger(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	noop := NewNoopLogger()
	SetLogger(noop)
	assert.Same(t, noop, GetLogger())

	SetLogger(nil)
	_, ok := GetLogger().(*NoopLogger)
	assert.True(t, ok)
}

func TestNoopLogger(t *testing.T) {
	var logger Logger = NewNoopLogger()
	logger.Info(context.Background(), "ignored", Any("x", 1))
	assert.Same(t, logger, logger.WithFields(String("a", "b")))
}
