package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_IncludesComponentFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).WithComponent(Component{
		Name:    "triggerer",
		JobType: "TriggererJob",
	})

	logger.Info(context.Background(), "test message")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]

	if entry["component.name"] != "triggerer" {
		t.Errorf("component.name = %v", entry["component.name"])
	}
	if entry["component.job_type"] != "TriggererJob" {
		t.Errorf("component.job_type = %v", entry["component.job_type"])
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if _, ok := entry["timestamp"].(string); !ok {
		t.Errorf("timestamp missing: %v", entry)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{level: "debug", want: []string{"debug", "info", "warn", "error"}},
		{level: "info", want: []string{"info", "warn", "error"}},
		{level: "warn", want: []string{"warn", "error"}},
		{level: "error", want: []string{"error"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(tt.level, &buf)
			ctx := context.Background()

			logger.Debug(ctx, "d")
			logger.Info(ctx, "i")
			logger.Warn(ctx, "w")
			logger.Error(ctx, "e")

			entries := decodeLines(t, &buf)
			if len(entries) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(entries), len(tt.want))
			}
			for i, entry := range entries {
				if entry["level"] != tt.want[i] {
					t.Errorf("entry %d level = %v, want %s", i, entry["level"], tt.want[i])
				}
			}
		})
	}
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "connecting",
		F("dsn", "postgres://user:hunter2@db/airflow"),
		F("password", "hunter2"),
		F("driver", "pgx"),
	)

	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Fatalf("secret leaked into log output: %s", out)
	}

	entry := decodeLines(t, &buf)[0]
	if entry["dsn"] != "[REDACTED]" {
		t.Errorf("dsn = %v, want [REDACTED]", entry["dsn"])
	}
	if entry["driver"] != "pgx" {
		t.Errorf("driver = %v, want pgx", entry["driver"])
	}
}

func TestLogger_ErrorValuesAsStrings(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Warn(context.Background(), "query failed", F("error", errors.New("connection refused")))

	entry := decodeLines(t, &buf)[0]
	if entry["error"] != "connection refused" {
		t.Errorf("error = %v, want 'connection refused'", entry["error"])
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": LevelDebug,
		"info":  LevelInfo,
		"warn":  LevelWarn,
		"error": LevelError,
		"":      LevelInfo,
		"bogus": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Info(context.Background(), "ignored")
	if logger.WithComponent(Component{Name: "noop"}) == nil {
		t.Fatal("WithComponent should return non-nil logger")
	}
}

func TestLogger_TraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	tracer, _ := newRecordingTracer()
	ctx, span := tracer.StartSpan(context.Background(), Component{Name: "scheduler"})
	logger.Info(ctx, "inside span")
	tracer.EndSpan(span, nil)
	logger.Info(context.Background(), "outside span")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v, want %s", entries[0]["trace_id"], span.SpanContext().TraceID())
	}
	if entries[0]["span_id"] != span.SpanContext().SpanID().String() {
		t.Errorf("span_id = %v, want %s", entries[0]["span_id"], span.SpanContext().SpanID())
	}
	if _, ok := entries[1]["trace_id"]; ok {
		t.Error("entry outside a span should not carry trace_id")
	}
}

func TestLogLevel_String(t *testing.T) {
	for _, l := range []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		if ParseLogLevel(l.String()) != l {
			t.Errorf("ParseLogLevel(%v.String()) did not round-trip", l)
		}
	}
	if LogLevel(42).String() != "info" {
		t.Errorf("out-of-range level = %q, want info", LogLevel(42).String())
	}
}
