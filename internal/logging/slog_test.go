package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestSetup_Destination(t *testing.T) {
	t.Run("file keeps stdout clean for the renderer", func(t *testing.T) {
		restore := captureStdout(t)

		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", nil)
		m.Logger().Info("Missile launched", "faction", "RU")

		assert.Empty(t, restore())
		assert.Contains(t, file.String(), "Missile launched")
		assert.Contains(t, file.String(), "faction=RU")
	})

	t.Run("no file falls back to stdout", func(t *testing.T) {
		restore := captureStdout(t)

		m := NewSlogManager()
		m.Setup(nil, "info", nil)
		m.Logger().Info("Headless run started")

		assert.Contains(t, restore(), "Headless run started")
	})
}

func TestSetup_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
	}{
		{"debug", true},
		{"DEBUG", true},
		{"info", false},
		{"warn", false},
		{"", false},
		{"verbose", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tt.level, nil)

			m.Logger().Debug("Unit state", "state", "PURSUING")
			m.Logger().Warn("Bombardment has no targets")

			assert.Equal(t, tt.wantDebug, strings.Contains(buf.String(), "state=PURSUING"))
			assert.Contains(t, buf.String(), "Bombardment has no targets")
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("Debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestSetup_SecondCallDetachesFirstWriter(t *testing.T) {
	var first, second bytes.Buffer
	m := NewSlogManager()

	m.Setup(&first, "info", nil)
	m.Logger().Info("tick 1")
	m.Setup(&second, "info", nil)
	m.Logger().Info("tick 2")

	assert.Contains(t, first.String(), "tick 1")
	assert.NotContains(t, first.String(), "tick 2")
	assert.Contains(t, second.String(), "tick 2")
}

func TestLogger_BeforeSetup(t *testing.T) {
	assert.Equal(t, slog.Default(), NewSlogManager().Logger())
}

func TestSetup_WithGELF(t *testing.T) {
	var file, gelf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil, WithGELF(&gelf))

	m.Logger().Info("Impact resolved", "owner", "EU", "casualties", 3)

	lines := strings.Split(strings.TrimSpace(gelf.String()), "\n")
	require.Len(t, lines, 2, "init record plus one")

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "Impact resolved", rec["msg"])
	assert.Equal(t, "EU", rec["owner"])
	assert.EqualValues(t, 3, rec["casualties"])
	assert.Contains(t, file.String(), "owner=EU")
}

func TestSetup_WithContext(t *testing.T) {
	var buf bytes.Buffer
	tick := 0
	m := NewSlogManager()
	m.Setup(&buf, "info", nil, WithContext(func(context.Context) []slog.Attr {
		return []slog.Attr{slog.String("session", "abc"), slog.Int("tick", tick)}
	}))

	tick = 42
	m.Logger().Info("Stepped")
	m.Logger().WithGroup("sim").Info("Grouped")

	out := buf.String()
	assert.Contains(t, out, "session=abc")
	assert.Contains(t, out, "tick=42")
	assert.Contains(t, out, "sim.tick=42")
}

func TestSetup_WithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", provider)
	m.Logger().Info("Victory declared", "winner", "AS")

	assert.Contains(t, buf.String(), "winner=AS")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestFlush_WithoutProvider(t *testing.T) {
	assert.NoError(t, NewSlogManager().Flush(context.Background()))
}

type failingHandler struct {
	slog.Handler
}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("graylog unreachable")
}

func TestMultiHandler(t *testing.T) {
	t.Run("fans out and skips nil", func(t *testing.T) {
		var a, b bytes.Buffer
		multi := NewMultiHandler(nil, slog.NewTextHandler(&a, nil), nil, slog.NewTextHandler(&b, nil))
		require.Len(t, multi.handlers, 2)

		slog.New(multi).Info("Alert changed", "level", 3)
		assert.Contains(t, a.String(), "level=3")
		assert.Contains(t, b.String(), "level=3")
	})

	t.Run("enabled if any handler is", func(t *testing.T) {
		info := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
		debug := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})
		ctx := context.Background()

		assert.False(t, NewMultiHandler().Enabled(ctx, slog.LevelError))
		assert.False(t, NewMultiHandler(info).Enabled(ctx, slog.LevelDebug))
		assert.True(t, NewMultiHandler(info, debug).Enabled(ctx, slog.LevelDebug))
	})

	t.Run("attrs and groups reach every handler", func(t *testing.T) {
		var buf bytes.Buffer
		multi := NewMultiHandler(slog.NewTextHandler(&buf, nil))

		logger := slog.New(multi.WithAttrs([]slog.Attr{slog.String("component", "runner")}))
		logger.WithGroup("frame").Info("Published", "tick", 7)

		assert.Contains(t, buf.String(), "component=runner")
		assert.Contains(t, buf.String(), "frame.tick=7")
		assert.Same(t, multi, multi.WithGroup(""))
	})

	t.Run("failing handler does not block the rest", func(t *testing.T) {
		var buf bytes.Buffer
		multi := NewMultiHandler(failingHandler{}, slog.NewTextHandler(&buf, nil), failingHandler{})

		err := multi.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "Mobilized", 0))
		require.Error(t, err)
		assert.Equal(t, "graylog unreachable\ngraylog unreachable", err.Error())
		assert.Contains(t, buf.String(), "Mobilized")
	})
}

// captureStdout swaps os.Stdout for a pipe. The returned func restores it
// and yields what was written.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stdout
	os.Stdout = w

	return func() string {
		w.Close()
		os.Stdout = orig
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}
