package droidusb

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"none", LogNone},
		{"ERROR", LogError},
		{"warn", LogWarning},
		{"warning", LogWarning},
		{" info ", LogInfo},
		{"debug", LogDebug},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("ParseLogLevel should reject unknown names")
	}
	for l := LogNone; l <= LogDebug; l++ {
		if got, _ := ParseLogLevel(l.String()); got != l {
			t.Errorf("ParseLogLevel(%q) = %v", l.String(), got)
		}
	}
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cb := ZapLogger(zap.New(core))

	cb(LogError, "Open", "a Java exception occurred: boom")
	cb(LogWarning, "Load", "missing")
	cb(LogInfo, "Load", "info")
	cb(LogDebug, "Unload", "unloaded from JVM")
	cb(LogNone, "Load", "dropped")

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	want := []zapcore.Level{zapcore.ErrorLevel, zapcore.WarnLevel, zapcore.InfoLevel, zapcore.DebugLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Errorf("entry %d level = %v, want %v", i, e.Level, want[i])
		}
	}
	if fn := entries[0].ContextMap()["function"]; fn != "Open" {
		t.Errorf("function field = %v, want Open", fn)
	}
}

func TestBridgeLogLevelFilter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newFakeHost()
	cfg := DefaultConfig()
	cfg.LogLevel = LogError

	b, err := Load(h.vm, WithConfig(cfg), WithLogger(ZapLogger(zap.New(core))))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n := logs.Len(); n != 0 {
		t.Errorf("debug messages leaked through an error-level filter: %d", n)
	}

	b.Open("/no/such/device")
	if n := logs.FilterMessage("device open refused: /no/such/device").Len(); n != 1 {
		t.Errorf("refusal logged %d times, want 1", n)
	}
}

func TestNilLoggers(t *testing.T) {
	ZapLogger(nil)(LogError, "Open", "ignored")

	h := newFakeHost()
	b, err := Load(h.vm, WithLogger(nil))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b.Open("/no/such/device")
}
