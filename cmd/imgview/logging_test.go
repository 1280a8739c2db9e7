package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFanout(t *testing.T) {
	var info, errs bytes.Buffer
	h := &fanout{hs: []slog.Handler{
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	ctx := context.Background()

	if h.Enabled(ctx, slog.LevelDebug) {
		t.Error("Enabled(debug) = true")
	}
	if !h.Enabled(ctx, slog.LevelInfo) {
		t.Error("Enabled(info) = false")
	}

	log := slog.New(h).With("app", "imgview")
	log.Info("loaded", "url", "a.png")
	log.Error("decode failed", "url", "b.png")

	if !strings.Contains(info.String(), "msg=loaded") || !strings.Contains(info.String(), "msg=\"decode failed\"") {
		t.Errorf("text handler output = %q", info.String())
	}
	if !strings.Contains(info.String(), "app=imgview") {
		t.Errorf("WithAttrs not applied: %q", info.String())
	}
	if strings.Contains(errs.String(), "loaded") {
		t.Errorf("error handler received an info record: %q", errs.String())
	}
	if !strings.Contains(errs.String(), `"msg":"decode failed"`) || !strings.Contains(errs.String(), `"app":"imgview"`) {
		t.Errorf("json handler output = %q", errs.String())
	}
}

func TestFanoutWithGroup(t *testing.T) {
	var buf bytes.Buffer
	h := &fanout{hs: []slog.Handler{slog.NewTextHandler(&buf, nil)}}
	slog.New(h).WithGroup("view").Info("zoom", "value", 2)
	if !strings.Contains(buf.String(), "view.value=2") {
		t.Errorf("output = %q", buf.String())
	}
}
