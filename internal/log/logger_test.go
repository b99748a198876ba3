// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithComponentField(t *testing.T) {
	var buf bytes.Buffer
	base = zerolog.New(&buf).With().Timestamp().Str("service", "zsc").Logger()
	defer Configure(Config{})

	l := WithComponent("websearch")
	l.Info().Str(FieldEvent, "search.start").Msg("searching")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["component"] != "websearch" {
		t.Errorf("component = %v, want websearch", entry["component"])
	}
	if entry["event"] != "search.start" {
		t.Errorf("event = %v, want search.start", entry["event"])
	}
	if entry["service"] != "zsc" {
		t.Errorf("service = %v, want zsc", entry["service"])
	}
}

func TestDerive(t *testing.T) {
	logger1 := Derive(nil)
	if logger1.GetLevel() > zerolog.PanicLevel {
		t.Error("Expected valid logger from Derive with nil builder")
	}

	var buf bytes.Buffer
	base = zerolog.New(&buf)
	defer Configure(Config{})

	logger2 := Derive(func(ctx *zerolog.Context) {
		*ctx = ctx.Str(FieldKeyword, "servo motor")
	})
	logger2.Info().Msg("derived")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["keyword"] != "servo motor" {
		t.Errorf("keyword = %v, want servo motor", entry["keyword"])
	}
}

func TestBase(t *testing.T) {
	baseLogger := Base()
	if baseLogger.GetLevel() > zerolog.PanicLevel {
		t.Error("Expected valid base logger")
	}
}
