package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"neoscanner/internal/config"
)

func newBufferLogger(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	lm, err := InitLogger(&config.LogConfig{Level: level, Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("InitLogger failed: %v", err)
	}
	buf := &bytes.Buffer{}
	lm.GetLogger().SetOutput(buf)
	t.Cleanup(func() { LoggerInstance = nil })
	return buf
}

func TestInitLogger_InvalidFormat(t *testing.T) {
	if _, err := InitLogger(&config.LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if _, err := InitLogger(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestLogScanOperation_Fields(t *testing.T) {
	buf := newBufferLogger(t, "info")

	LogScanOperation("task-1", "port", "127.0.0.1", "completed", "3 open", 1500*time.Millisecond, map[string]interface{}{"ports": "22,80"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, buf.String())
	}
	if entry["type"] != string(ScanLog) {
		t.Errorf("type = %v, want %s", entry["type"], ScanLog)
	}
	if entry["task_id"] != "task-1" || entry["ports"] != "22,80" {
		t.Errorf("unexpected fields: %v", entry)
	}
	if entry["duration"].(float64) != 1500 {
		t.Errorf("duration = %v, want 1500", entry["duration"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp field missing")
	}
}

func TestUpdateConfig_Level(t *testing.T) {
	buf := newBufferLogger(t, "warn")

	Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %s", buf.String())
	}

	if err := LoggerInstance.UpdateConfig(&config.LogConfig{Level: "debug", Format: "json", Output: "stdout"}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	buf.Reset()
	LogError(errors.New("boom"), "req-1", "10.0.0.1", "/scan/ports", "POST", nil)
	if !bytes.Contains(buf.Bytes(), []byte("boom")) {
		t.Errorf("expected error log, got %s", buf.String())
	}
}
