package cmd

import (
	"os"
	"strings"
	"testing"
)

func TestExecute_UnknownCommand(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = []string{"clonebrain", "frobnicate"}

	err := Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("Execute() error = %v, want unknown command", err)
	}
}

func TestExecute_Help(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	for _, args := range [][]string{
		{"clonebrain"},
		{"clonebrain", "help"},
		{"clonebrain", "--help"},
		{"clonebrain", "version"},
	} {
		os.Args = args
		if err := Execute(); err != nil {
			t.Errorf("Execute(%v) error = %v", args, err)
		}
	}
}

func TestParseRateBurst(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 0},
		{"120", 120},
		{"-5", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		t.Setenv("CLONEBRAIN_RATE_BURST", tt.value)
		if got := parseRateBurst(); got != tt.want {
			t.Errorf("parseRateBurst() with %q = %d, want %d", tt.value, got, tt.want)
		}
	}
}
