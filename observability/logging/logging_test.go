package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	original := os.Stdout
	os.Stdout = w
	fn()
	w.Close()
	os.Stdout = original

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}
	return string(buf)
}

func TestSetupEmitsJSONWithRenamedKeys(t *testing.T) {
	output := captureStdout(t, func() {
		logger := Setup("farmgatewayd", "test")
		logger.Info("request handled")
	})

	line := strings.TrimSpace(strings.Split(output, "\n")[0])
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		t.Fatalf("expected valid JSON log line, got %q: %v", line, err)
	}

	for _, key := range []string{"timestamp", "severity", "message", "service", "env"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("expected key %q in log line, got %+v", key, fields)
		}
	}
	if fields["severity"] != "INFO" {
		t.Fatalf("expected severity INFO, got %v", fields["severity"])
	}
	if fields["service"] != "farmgatewayd" {
		t.Fatalf("expected service farmgatewayd, got %v", fields["service"])
	}
}

func TestSetupOmitsEnvAttrWhenBlank(t *testing.T) {
	output := captureStdout(t, func() {
		logger := Setup("farmgatewayd", "  ")
		logger.Info("ping")
	})

	line := strings.TrimSpace(strings.Split(output, "\n")[0])
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		t.Fatalf("expected valid JSON log line: %v", err)
	}
	if _, ok := fields["env"]; ok {
		t.Fatalf("expected no env attr for blank env, got %+v", fields)
	}
}

func TestSetupReturnsUsableLogger(t *testing.T) {
	logger := Setup("farmgatewayd", "test")
	if logger == nil {
		t.Fatalf("expected non-nil logger")
	}
	if logger.Handler() == nil {
		t.Fatalf("expected logger to carry a handler")
	}
	var _ *slog.Logger = logger
}
