package main

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/myrsple/telegram-scraper/internal/telegram"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("resolve: %w", telegram.ErrNotFound), exitBadIdentifier},
		{"private group", fmt.Errorf("resolve: %w", telegram.ErrAccessDenied), exitNoAccess},
		{"banned", fmt.Errorf("resolve: %w", telegram.ErrBanned), exitNoAccess},
		{"bad session", fmt.Errorf("connect: %w", telegram.ErrAuth), exitAuth},
		{"rate exhausted", fmt.Errorf("fetch: %w", telegram.ErrRateExhausted), exitRateExhausted},
		{"network", fmt.Errorf("fetch: %w", telegram.ErrNetwork), exitNetwork},
		{"anything else", errors.New("boom"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2024-06-01")
	if err != nil {
		t.Fatalf("parseDate() error = %v", err)
	}
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseDate() = %v, want %v", got, want)
	}

	if got, _ := parseDate(""); !got.IsZero() {
		t.Error("empty input should yield the zero time")
	}

	for _, bad := range []string{"01-06-2024", "2024/06/01", "yesterday"} {
		if _, err := parseDate(bad); err == nil {
			t.Errorf("parseDate(%q) should fail", bad)
		}
	}
}

func TestSplitKeywords(t *testing.T) {
	got := splitKeywords("golang, remote ,  , rust")
	want := []string{"golang", "remote", "rust"}
	if len(got) != len(want) {
		t.Fatalf("splitKeywords() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keyword %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGroupArg(t *testing.T) {
	group, rest, err := groupArg("members", []string{"@test", "--limit", "5"})
	if err != nil {
		t.Fatalf("groupArg() error = %v", err)
	}
	if group != "@test" {
		t.Errorf("group = %q, want %q", group, "@test")
	}
	if len(rest) != 2 {
		t.Errorf("rest = %v, want two flag tokens", rest)
	}

	if _, _, err := groupArg("members", nil); err == nil {
		t.Error("missing group should fail")
	}
}
