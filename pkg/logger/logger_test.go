package logger

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name:    "valid options with info level",
			opts:    Options{Level: "info"},
			wantErr: false,
		},
		{
			name:    "valid options with debug level",
			opts:    Options{Level: "debug"},
			wantErr: false,
		},
		{
			name:    "empty level defaults to info",
			opts:    Options{},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			opts:    Options{Level: "chatty"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && l == nil {
				t.Error("New() returned nil logger without error")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zerolog.Level
		wantErr bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"fatal", zerolog.FatalLevel, false},
		{"panic", zerolog.PanicLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"", zerolog.InfoLevel, false},
		{"bogus", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLogLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWithFieldChaining(t *testing.T) {
	l, err := New(Options{Level: "debug"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	child := l.WithField("model", "example").WithField("area", "Timeline")
	if child == nil {
		t.Fatal("WithField returned nil")
	}

	// The parent must not inherit the child's fields.
	parent, ok := l.(*zerologLogger)
	if !ok {
		t.Fatal("unexpected logger implementation")
	}
	if len(parent.fields) != 0 {
		t.Errorf("parent logger gained %d fields from child", len(parent.fields))
	}

	impl, ok := child.(*zerologLogger)
	if !ok {
		t.Fatal("unexpected child logger implementation")
	}
	if impl.fields["model"] != "example" || impl.fields["area"] != "Timeline" {
		t.Errorf("child fields = %v, want model and area set", impl.fields)
	}
}

func TestWithErrorNil(t *testing.T) {
	l, err := New(Options{Level: "info"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := l.WithError(nil); got != l {
		t.Error("WithError(nil) should return the same logger")
	}
}

func TestTestLoggerCapture(t *testing.T) {
	tl := NewTestLogger()

	tl.Info("scan started")
	tl.WarnWithFields("rate limited", map[string]interface{}{"retry_after": 30})
	tl.WithError(errors.New("boom")).Error("download failed")

	msgs := tl.Messages()
	if len(msgs) != 3 {
		t.Fatalf("captured %d messages, want 3", len(msgs))
	}

	if !tl.HasMessage("scan started") {
		t.Error("missing info message")
	}

	warns := tl.MessagesAtLevel("WARN")
	if len(warns) != 1 {
		t.Fatalf("captured %d warnings, want 1", len(warns))
	}
	if warns[0].Fields["retry_after"] != 30 {
		t.Errorf("retry_after = %v, want 30", warns[0].Fields["retry_after"])
	}

	errs := tl.MessagesAtLevel("ERROR")
	if len(errs) != 1 || errs[0].Fields["error"] != "boom" {
		t.Errorf("error messages = %v, want one with error field", errs)
	}

	tl.Reset()
	if len(tl.Messages()) != 0 {
		t.Error("Reset did not clear messages")
	}
}
