package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

// testLogHandler captures log records for testing.
type testLogHandler struct {
	buf   *bytes.Buffer
	level slog.Level
}

func newTestLogHandler() *testLogHandler {
	return &testLogHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	enc := json.NewEncoder(h.buf)
	return enc.Encode(data)
}

func (h *testLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *testLogHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *testLogHandler) getRecords() []map[string]any {
	var records []map[string]any
	lines := bytes.Split(h.buf.Bytes(), []byte("\n"))
	for _, line := range lines {
		if len(line) > 0 {
			var m map[string]any
			if err := json.Unmarshal(line, &m); err == nil {
				records = append(records, m)
			}
		}
	}
	return records
}

func TestLogRunLifecycle(t *testing.T) {
	h := newTestLogHandler()
	logger := slog.New(h)

	LogRunStart(logger, "run-123")
	LogRunSuspended(logger, "run-123", "combined_human_review")
	LogRunComplete(logger, "run-123", 250*time.Millisecond, 9)

	records := h.getRecords()
	require.Len(t, records, 3)

	assert.Equal(t, "run starting", records[0]["msg"])
	assert.Equal(t, "run-123", records[0]["run_id"])

	assert.Equal(t, "run suspended", records[1]["msg"])
	assert.Equal(t, "combined_human_review", records[1]["node_id"])

	assert.Equal(t, "run completed", records[2]["msg"])
	assert.Equal(t, float64(250), records[2]["duration_ms"])
	assert.Equal(t, float64(9), records[2]["nodes_executed"])
}

func TestLogRunError(t *testing.T) {
	h := newTestLogHandler()
	logger := slog.New(h)

	LogRunError(logger, "run-123", errors.New("planner exploded"), time.Second)

	records := h.getRecords()
	require.Len(t, records, 1)
	assert.Equal(t, "ERROR", records[0]["level"])
	assert.Equal(t, "run failed", records[0]["msg"])
	assert.Equal(t, "planner exploded", records[0]["error"])
	assert.Equal(t, float64(1000), records[0]["duration_ms"])
}

func TestLogNodeLifecycle(t *testing.T) {
	h := newTestLogHandler()
	logger := slog.New(h)

	LogNodeStart(logger, "research_food")
	LogNodeComplete(logger, "research_food", 42*time.Millisecond)
	LogNodeError(logger, "research_food", errors.New("agent timeout"))

	records := h.getRecords()
	require.Len(t, records, 3)

	assert.Equal(t, "node starting", records[0]["msg"])
	assert.Equal(t, "DEBUG", records[0]["level"])

	assert.Equal(t, "node completed", records[1]["msg"])
	assert.Equal(t, float64(42), records[1]["duration_ms"])

	assert.Equal(t, "node failed", records[2]["msg"])
	assert.Equal(t, "agent timeout", records[2]["error"])
}

func TestLogInterruptAndCheckpoint(t *testing.T) {
	h := newTestLogHandler()
	logger := slog.New(h)

	LogInterrupt(logger, "combined_human_review")
	LogCheckpoint(logger, "budget_estimate", 2048)
	LogFanOut(logger, "research_plan", "combined_human_review", 5, 3*time.Second)

	records := h.getRecords()
	require.Len(t, records, 3)

	assert.Equal(t, "interrupt raised", records[0]["msg"])
	assert.Equal(t, "combined_human_review", records[0]["node_id"])

	assert.Equal(t, "checkpoint saved", records[1]["msg"])
	assert.Equal(t, float64(2048), records[1]["size_bytes"])

	assert.Equal(t, "fan-out completed", records[2]["msg"])
	assert.Equal(t, "research_plan", records[2]["fork_node"])
	assert.Equal(t, "combined_human_review", records[2]["join_node"])
	assert.Equal(t, float64(5), records[2]["branches"])
}

func TestLogHelpers_NilLogger(t *testing.T) {
	// Every helper must be safe to call without a logger.
	assert.NotPanics(t, func() {
		LogRunStart(nil, "r")
		LogRunComplete(nil, "r", time.Second, 1)
		LogRunSuspended(nil, "r", "n")
		LogRunError(nil, "r", errors.New("x"), time.Second)
		LogNodeStart(nil, "n")
		LogNodeComplete(nil, "n", time.Second)
		LogNodeError(nil, "n", errors.New("x"))
		LogInterrupt(nil, "n")
		LogCheckpoint(nil, "n", 1)
		LogFanOut(nil, "a", "b", 2, time.Second)
	})
}

func TestNoopMetrics(t *testing.T) {
	ctx := context.Background()
	m := NoopMetrics()
	require.NotNil(t, m)

	assert.NotPanics(t, func() {
		m.RecordRun(ctx, true, time.Second)
		m.RecordNode(ctx, "budget_estimate", time.Second, nil)
		m.RecordNode(ctx, "budget_estimate", time.Second, errors.New("x"))
		m.RecordInterrupt(ctx, "combined_human_review")
		m.RecordCheckpoint(ctx, "planner", 512)
		m.RecordCandidates(ctx, "food", 3)
		m.RecordLLMCall(ctx, "gpt-4o", time.Second, nil)
	})
}

func TestNewMetrics(t *testing.T) {
	// Without a meter provider the global default is a no-op, but
	// instrument creation still succeeds and recording must be safe.
	m := NewMetrics()
	require.NotNil(t, m)
	assert.Same(t, m, NewMetrics())

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordRun(ctx, true, 100*time.Millisecond)
		m.RecordNode(ctx, "research_food", 50*time.Millisecond, nil)
		m.RecordInterrupt(ctx, "combined_human_review")
		m.RecordCheckpoint(ctx, "planner", 1024)
		m.RecordCandidates(ctx, "lodging", 2)
		m.RecordLLMCall(ctx, "gpt-4o", 200*time.Millisecond, errors.New("rate limited"))
	})
}

func TestSpans(t *testing.T) {
	// The global tracer provider defaults to no-op; spans must still be
	// valid handles.
	spans := NewSpans()
	ctx := context.Background()

	runCtx, runSpan := spans.StartRunSpan(ctx, "run-123")
	require.NotNil(t, runSpan)
	assert.NotNil(t, runCtx)

	nodeCtx, nodeSpan := spans.StartNodeSpan(runCtx, "budget_estimate")
	require.NotNil(t, nodeSpan)
	assert.NotNil(t, nodeCtx)

	assert.NotPanics(t, func() {
		AddSpanEvent(nodeCtx, "candidates collected",
			attribute.String("category", "food"),
			attribute.Int("count", 3),
		)
		spans.EndSpan(nodeSpan, errors.New("agent timeout"))
		spans.EndSpan(runSpan, nil)
		spans.EndSpan(nil, nil)
	})
}
