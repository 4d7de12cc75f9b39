package main

import (
	"context"
	"strings"
	"testing"
)

func TestRunRejectsUnknownFlag(t *testing.T) {
	if err := run(context.Background(), []string{"-bogus"}); err == nil {
		t.Fatalf("expected flag error")
	}
}

func TestRunFailsWithoutDatabaseURL(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")

	err := run(context.Background(), []string{"-timeout", "5s"})
	if err == nil || !strings.Contains(err.Error(), "DB_URL") {
		t.Fatalf("run = %v, want DB_URL error", err)
	}
}
