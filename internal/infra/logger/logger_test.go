package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"john.doe@example.com": "joh***@example.com",
		"ab@example.com":       "ab***@example.com",
		"not-an-email":         "***",
	}
	for input, want := range cases {
		if got := MaskEmail(input); got != want {
			t.Fatalf("MaskEmail(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestMaskIP(t *testing.T) {
	cases := map[string]string{
		"192.168.1.100": "192.168.*.*",
		"2001:0db8:85a3:0000:0000:8a2e:0370:7334": "2001:0db8:85a3:0000:*:*:*:*",
		"garbage": "***",
	}
	for input, want := range cases {
		if got := MaskIP(input); got != want {
			t.Fatalf("MaskIP(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestMaskString(t *testing.T) {
	if got := MaskString("secret123"); got != "se***23" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := MaskString("abc"); got != "***" {
		t.Fatalf("unexpected short mask %q", got)
	}
}

func TestFromContextAddsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	FromContext(ctx, base).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-1" {
		t.Fatalf("expected request_id req-1, got %v", got)
	}
}

func TestFromContextWithoutRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	FromContext(context.Background(), zap.New(core)).Info("hello")

	if _, ok := logs.All()[0].ContextMap()["request_id"]; ok {
		t.Fatalf("expected no request_id field")
	}
}
