package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jorge-redcloud/demand-planning/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		wantLevel zerolog.Level
	}{
		{"debug level", "debug", zerolog.DebugLevel},
		{"info level", "info", zerolog.InfoLevel},
		{"warn level", "warn", zerolog.WarnLevel},
		{"error level", "error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&config.Config{Env: "development", LogLevel: tt.logLevel, LogFormat: "json"}, &buf)
			if log == nil {
				t.Fatal("Expected logger to be created")
			}

			if zerolog.GlobalLevel() != tt.wantLevel {
				t.Errorf("Expected global level %v, got %v", tt.wantLevel, zerolog.GlobalLevel())
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v (%s)", err, buf.String())
	}
	return entry
}

func TestJSONOutputCarriesEnv(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "staging", LogLevel: "info", LogFormat: "json"}, &buf)

	log.WithField("rows", 12).Info("built rows")

	entry := decode(t, &buf)
	if entry["env"] != "staging" {
		t.Errorf("Expected env staging, got %v", entry["env"])
	}
	if entry["message"] != "built rows" || entry["rows"] != float64(12) {
		t.Errorf("Unexpected message %v", entry["message"])
	}
}

func TestWithFieldsAndRun(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log := &Logger{zlog: zerolog.New(&buf)}

	log.WithRun("run-1").WithFields(map[string]interface{}{
		"agg_level": "sku",
		"entities":  42,
	}).Info("features built")

	entry := decode(t, &buf)
	if entry["run_id"] != "run-1" {
		t.Errorf("Expected run_id run-1, got %v", entry["run_id"])
	}
	if entry["entities"] != float64(42) {
		t.Errorf("Expected entities 42, got %v", entry["entities"])
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log := &Logger{zlog: zerolog.New(&buf)}

	zl := log.Component("features.engine")
	zl.Info().Int("rows", 3).Msg("done")

	entry := decode(t, &buf)
	if entry["component"] != "features.engine" {
		t.Errorf("Expected component tag, got %v", entry["component"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := &Logger{zlog: zerolog.New(&buf)}

	log.WithError(errors.New("predictor down")).Error("evaluation failed")

	entry := decode(t, &buf)
	if entry["error"] != "predictor down" {
		t.Errorf("Expected error field, got %v", entry["error"])
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "development", LogLevel: "info", LogFormat: "console"}, &buf)

	log.Info("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", buf.String())
	}
}
