package telemetry

import (
	"testing"
	"time"

	"datapub/config"
	"datapub/logger"
)

func init() {
	logger.Init("error")
}

func TestNewWithoutEndpoint(t *testing.T) {
	cfg := config.Defaults()
	emitter, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emitter != nil {
		t.Fatal("no endpoint must yield a nil emitter")
	}
}

func TestNewRejectsSchemelessEndpoint(t *testing.T) {
	cfg := config.Defaults()
	cfg.OtelEndpoint = "collector:4318"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for endpoint without scheme")
	}
}

func TestNilEmitterIsSafe(t *testing.T) {
	var emitter *Emitter
	emitter.Emit("upload", map[string]interface{}{"path": "a.jsonl"})
	emitter.Shutdown()
}

func TestResolveEndpointPrecedence(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "http://logs:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://generic:4318")

	cfg := config.Defaults()
	cfg.OtelEndpoint = "http://explicit:4318"
	cfg.OtelFromEnv = true
	if got := resolveEndpoint(cfg); got != "http://explicit:4318" {
		t.Fatalf("explicit endpoint must win: %s", got)
	}

	cfg.OtelEndpoint = ""
	if got := resolveEndpoint(cfg); got != "http://logs:4318" {
		t.Fatalf("logs endpoint must precede generic: %s", got)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "")
	if got := resolveEndpoint(cfg); got != "http://generic:4318" {
		t.Fatalf("generic endpoint must be the fallback: %s", got)
	}

	cfg.OtelFromEnv = false
	if got := resolveEndpoint(cfg); got != "" {
		t.Fatalf("environment must be ignored when not opted in: %s", got)
	}
}

func TestToLogValue(t *testing.T) {
	if toLogValue("x").AsString() != "x" {
		t.Fatal("string conversion")
	}
	if toLogValue(7).AsInt64() != 7 {
		t.Fatal("int conversion")
	}
	if toLogValue(int64(9)).AsInt64() != 9 {
		t.Fatal("int64 conversion")
	}
	if !toLogValue(true).AsBool() {
		t.Fatal("bool conversion")
	}
	if toLogValue(1500 * time.Millisecond).AsInt64() != 1500 {
		t.Fatal("duration should convert to milliseconds")
	}
	if got := toLogValue([]string{"a", "b"}).AsSlice(); len(got) != 2 || got[0].AsString() != "a" {
		t.Fatalf("slice conversion: %v", got)
	}
}
