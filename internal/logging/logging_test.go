package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(Config{Level: "debug"}, "oraclekeeper", &buf)
	logger.Debug().Str("currency", "ethereum").Msg("quote fetched")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["service"] != "oraclekeeper" {
		t.Fatalf("unexpected service field: %v", entry["service"])
	}
	if entry["level"] != "debug" || entry["message"] != "quote fetched" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewLoggerLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(Config{Level: "chatty"}, "", &buf)
	logger.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug line should be filtered at info level, got %q", buf.String())
	}
	logger.Info().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("info line missing: %q", buf.String())
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(Config{Format: "console"}, "", &buf)
	logger.Info().Msg("relay submitted")
	if strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected console output, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "relay submitted") {
		t.Fatalf("message missing: %q", buf.String())
	}
}

func TestOutputStream(t *testing.T) {
	if outputStream("STDOUT") != os.Stdout {
		t.Fatal("stdout not selected")
	}
	if outputStream("") != os.Stderr {
		t.Fatal("stderr should be the default")
	}
}
