package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// capture routes the package helpers into buf for the duration of the test.
func capture(t *testing.T, asJSON bool, level slog.Level) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := base.Load()
	base.Store(slog.New(newLineHandler(level, newLineWriter([]io.Writer{buf}), asJSON)))
	t.Cleanup(func() { base.Store(prev) })
	return buf
}

func TestKVLineStartsWithHeadFields(t *testing.T) {
	buf := capture(t, false, slog.LevelInfo)
	ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)

	Info(ctx, ComponentApp, "test.event",
		slog.String("cause", "unit"),
		slog.String("status", "ok"),
	)

	line := strings.TrimSpace(buf.String())
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123", "cause=unit", "update_id=42", "user_id=7", "chat_id=9"}
	if len(tokens) != len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestJSONLineIsOrderedObject(t *testing.T) {
	buf := capture(t, true, slog.LevelInfo)
	ctx := WithRID(Background(), "rid-json")

	Error(ctx, ComponentOrder, "order.submit",
		append([]slog.Attr{slog.String("status", "fail")}, ErrAttrs(errors.New("boom"), "SINK_FAIL")...)...,
	)

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("invalid JSON %s: %v", line, err)
	}
	if decoded["err"] != "boom" || decoded["err_code"] != "SINK_FAIL" {
		t.Fatalf("missing error fields: %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"scenario.order"`, `"event":"order.submit"`, `"status":"fail"`, `"rid":"rid-json"`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestRIDIsCompacted(t *testing.T) {
	buf := capture(t, false, slog.LevelInfo)
	Info(WithRID(Background(), BuildRID(123, 456, 789)), ComponentTG, "rid.test")

	line := strings.TrimSpace(buf.String())
	if !strings.HasSuffix(line, " rid=3f.co.lx") {
		t.Fatalf("expected compact rid, got %s", line)
	}
}

func TestContextMetadataAndDurations(t *testing.T) {
	buf := capture(t, false, slog.LevelInfo)
	ctx := WithScenario(Background(), "reservation")
	ctx = WithHandler(ctx, "cmd_start")
	ctx = WithTrace(ctx, "trace-1")

	Info(ctx, ComponentGuard, "guard.evict",
		slog.String("reason", "callback"),
		slog.Duration("took", 1500*time.Microsecond),
		slog.Duration("backoff_ms", 2*time.Second),
	)

	line := buf.String()
	for _, want := range []string{"scenario=reservation", "handler=cmd_start", "trace_id=trace-1", "took_ms=2", "backoff_ms=2000"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
}

func TestExplicitAttrsWinOverContext(t *testing.T) {
	buf := capture(t, false, slog.LevelInfo)
	ctx := WithScenario(Background(), "order")
	Info(ctx, ComponentGuard, "guard.switch", slog.String("scenario", "feedback"))

	line := buf.String()
	if !strings.Contains(line, "scenario=feedback") || strings.Contains(line, "scenario=order") {
		t.Fatalf("attribute should shadow context value, got %s", line)
	}
}

func TestDebugFilteredBelowLevel(t *testing.T) {
	buf := capture(t, false, slog.LevelInfo)
	Debug(Background(), ComponentApp, "noise")
	if buf.Len() != 0 {
		t.Fatalf("debug line leaked: %s", buf.String())
	}
}

func TestMissingComponentDefaultsToApp(t *testing.T) {
	buf := &bytes.Buffer{}
	log := slog.New(newLineHandler(slog.LevelInfo, newLineWriter([]io.Writer{buf}), false))
	log.WithGroup("db").With("host", "pg").Info("x", slog.Int("port", 5432), slog.String("empty", " "))

	line := buf.String()
	for _, want := range []string{"component=app", "event=x", "db.host=pg", "db.port=5432"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
	if strings.Contains(line, "empty=") {
		t.Fatalf("blank values should be dropped, got %s", line)
	}
}

func TestKVQuotesValuesWithSpaces(t *testing.T) {
	buf := capture(t, false, slog.LevelInfo)
	Info(Background(), ComponentCatalog, "catalog.load", slog.String("path", "menu file.csv"))
	if !strings.Contains(buf.String(), `path="menu file.csv"`) {
		t.Fatalf("expected quoted value, got %s", buf.String())
	}
}

func TestClosedWriterRejectsLines(t *testing.T) {
	w := newLineWriter([]io.Writer{&bytes.Buffer{}})
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Write([]byte("x\n")); !errors.Is(err, errClosed) {
		t.Fatalf("expected errClosed, got %v", err)
	}
}

func TestHelpers(t *testing.T) {
	if attrs := ErrAttrs(nil, "X"); attrs != nil {
		t.Fatalf("expected no attrs for nil error, got %v", attrs)
	}
	if Status(errors.New("x")) != "fail" || Status(nil) != "ok" {
		t.Fatal("unexpected status mapping")
	}
	if got := Clip("Ай\x00ями\u200b!", 4); got != "Айям" {
		t.Fatalf("Clip = %q", got)
	}
	if got := CompactRID("not:a:rid"); got != "not:a:rid" {
		t.Fatalf("CompactRID should keep foreign input, got %q", got)
	}
	if RoundMS(-time.Second) != 0 {
		t.Fatal("negative durations round to zero")
	}
}
