package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in    string
		debug bool
		want  zapcore.Level
	}{
		{"", false, zapcore.InfoLevel},
		{"", true, zapcore.DebugLevel},
		{"WARN", false, zapcore.WarnLevel},
		{" error ", true, zapcore.ErrorLevel},
		{"loud", false, zapcore.InfoLevel},
	}

	for _, tc := range testCases {
		if got := parseLevel(tc.in, tc.debug); got != tc.want {
			t.Errorf("parseLevel(%q, %v) = %v, want %v", tc.in, tc.debug, got, tc.want)
		}
	}
}

func TestNew(t *testing.T) {
	l, err := New("debug", false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug level to be enabled")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("Expected a nop logger")
	}
}
