package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func plain(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(NewConsoleHandler(buf, &slog.HandlerOptions{Level: level}, false))
}

func TestNew_FormatFromEnvironment(t *testing.T) {
	tests := []struct {
		environment string
		wantJSON    bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			var buf bytes.Buffer
			New(Config{Level: slog.LevelInfo, Environment: tt.environment, Writer: &buf}).Info("hello")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"hello"`)
			} else {
				assert.Contains(t, buf.String(), "INF hello")
			}
		})
	}
}

func TestNew_ExplicitFormatWins(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Format: "json", Environment: "development", Writer: &buf}).Info("hello")
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}

func TestNew_ColorOnlyWhenForced(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Format: "console", Writer: &buf}).Info("hello")
	assert.NotContains(t, buf.String(), "\033[", "a buffer is not a terminal")

	buf.Reset()
	on := true
	New(Config{Format: "console", Writer: &buf, Color: &on}).Info("hello")
	assert.Contains(t, buf.String(), ansiGreen+"INF"+ansiReset)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DeBuG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestConsoleHandler_Enabled(t *testing.T) {
	h := NewConsoleHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}, false)
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	h = NewConsoleHandler(&bytes.Buffer{}, nil, false)
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestConsoleHandler_Line(t *testing.T) {
	var buf bytes.Buffer
	plain(&buf, slog.LevelInfo).Info("scan tracked", "qr_code_id", "qr-1", "count", 3, "ua", "Mozilla/5.0 (X11)")

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "INF scan tracked qr_code_id=qr-1 count=3 ua=\"Mozilla/5.0 (X11)\"")
}

func TestConsoleHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	log := plain(&buf, slog.LevelInfo).With("component", "api").WithGroup("request")
	log.Info("done", "status", 200, slog.Group("timing", slog.Duration("total", 1500*time.Millisecond)))

	line := buf.String()
	assert.Contains(t, line, "component=api")
	assert.Contains(t, line, "request.status=200")
	assert.Contains(t, line, "request.timing.total=1.5s")
}

func TestConsoleHandler_WithGroupEmpty(t *testing.T) {
	h := NewConsoleHandler(&bytes.Buffer{}, nil, false)
	assert.Same(t, h, h.WithGroup(""))
}

func TestConsoleHandler_Source(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(&buf, &slog.HandlerOptions{AddSource: true}, false)
	slog.New(h).Info("here")
	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestFormatLevel(t *testing.T) {
	tests := []struct {
		level     slog.Level
		wantLabel string
		wantColor string
	}{
		{slog.LevelDebug, "DBG", ansiMagenta},
		{slog.LevelInfo, "INF", ansiGreen},
		{slog.LevelWarn, "WRN", ansiYellow},
		{slog.LevelError, "ERR", ansiRed},
		{slog.LevelError + 4, "ERR", ansiRed},
	}

	for _, tt := range tests {
		t.Run(tt.wantLabel, func(t *testing.T) {
			label, color := formatLevel(tt.level)
			assert.Equal(t, tt.wantLabel, label)
			assert.Equal(t, tt.wantColor, color)
		})
	}
}

func TestFormatValue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "plain", formatValue(slog.StringValue("plain")))
	assert.Equal(t, `""`, formatValue(slog.StringValue("")))
	assert.Equal(t, `"a b"`, formatValue(slog.StringValue("a b")))
	assert.Equal(t, "2026-03-01T12:00:00Z", formatValue(slog.TimeValue(now)))
	assert.Equal(t, "5s", formatValue(slog.DurationValue(5*time.Second)))
	assert.Equal(t, "42", formatValue(slog.IntValue(42)))
}

func TestLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Writer: &buf})

	l.WithError(errors.New("disk full")).Info("write failed")
	assert.Contains(t, buf.String(), `"error":"disk full"`)

	buf.Reset()
	l.Component("geoip").Info("loaded")
	assert.Contains(t, buf.String(), `"component":"geoip"`)
}
