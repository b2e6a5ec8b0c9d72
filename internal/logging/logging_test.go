// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	return m
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if ValidLevel("bogus") || !ValidLevel("warn") {
		t.Error("ValidLevel mismatch")
	}
}

// Tests below touch global state and do not run in parallel.

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	l := WithComponent("training")
	l.Debug().Str("model", "hybrid").Msg("fitting")

	m := decode(t, &buf)
	if m["component"] != "training" || m["model"] != "hybrid" || m["message"] != "fitting" {
		t.Errorf("log line = %v", m)
	}
	if _, ok := m["time"]; ok {
		t.Error("timestamp written while disabled")
	}
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("info written at warn level: %q", buf.String())
	}
	Warn().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn not written: %q", buf.String())
	}
}

func TestCtx_AddsIDs(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")

	Ctx(ctx).Info().Msg("hello")

	m := decode(t, &buf)
	if m["request_id"] != "req-1" || m["correlation_id"] != "corr-1" {
		t.Errorf("log line = %v", m)
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("empty context returned a request id")
	}
	if len(GenerateCorrelationID()) != 8 || len(GenerateRequestID()) != 36 {
		t.Error("unexpected generated id length")
	}
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLoggerFrom(NewTestLogger(&buf))

	logger.WithGroup("svc").With("name", "http").Warn("restarting",
		"attempt", 3, "backoff", 2*time.Second, "err", errors.New("boom"))

	m := decode(t, &buf)
	if m["level"] != "warn" || m["message"] != "restarting" {
		t.Errorf("log line = %v", m)
	}
	if m["svc.name"] != "http" || m["svc.attempt"] != float64(3) || m["svc.err"] != "boom" {
		t.Errorf("attributes = %v", m)
	}
}

func TestSlogLevelMapping(t *testing.T) {
	h := &SlogHandler{logger: zerolog.Nop().Level(zerolog.WarnLevel)}
	if h.Enabled(context.Background(), -4) {
		t.Error("debug enabled on warn logger")
	}
	if toZerologLevel(8) != zerolog.ErrorLevel || toZerologLevel(0) != zerolog.InfoLevel {
		t.Error("level mapping mismatch")
	}
}
