package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "subscraper/pkg/errors"
	"subscraper/pkg/logger"
)

func testConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}
}

func TestExponentialDelayGrowth(t *testing.T) {
	b := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2.0,
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, expected := range want {
		if got := b.NextDelay(i + 1); got != expected {
			t.Errorf("NextDelay(%d) = %v, want %v", i+1, got, expected)
		}
	}
	if got := b.NextDelay(0); got != 0 {
		t.Errorf("NextDelay(0) = %v, want 0", got)
	}
}

func TestExponentialDelayCapped(t *testing.T) {
	b := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}
	if got := b.NextDelay(10); got != 5*time.Second {
		t.Errorf("NextDelay(10) = %v, want cap of 5s", got)
	}
}

func TestExponentialJitterBounds(t *testing.T) {
	b := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.5,
	}

	for i := 0; i < 100; i++ {
		got := b.NextDelay(1)
		if got < 500*time.Millisecond || got > 1500*time.Millisecond {
			t.Fatalf("NextDelay(1) = %v, want within 50%% of 1s", got)
		}
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeNetwork, "flaky")
		}
		return nil
	}, testConfig(5))

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errs.New(errs.ErrorTypeAuth, "bad credentials")

	err := Do(func() error {
		calls++
		return permanent
	}, testConfig(5))

	if !errors.Is(err, permanent) {
		t.Errorf("Do() error = %v, want the auth error unwrapped", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries on auth errors)", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeServerError, "still down")
	}, testConfig(3))

	if err == nil {
		t.Fatal("Do() = nil, want exhaustion error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := testConfig(0)
	cfg.Context = ctx
	cfg.Backoff = &ConstantBackoff{Delay: time.Hour}

	done := make(chan error, 1)
	go func() {
		done <- Do(func() error {
			return errs.New(errs.ErrorTypeNetwork, "flaky")
		}, cfg)
	}()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Do() = nil, want cancellation error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do() did not return after cancellation")
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(func() (string, error) {
		calls++
		if calls < 2 {
			return "", errs.New(errs.ErrorTypeRateLimit, "slow down")
		}
		return "payload", nil
	}, testConfig(3))

	if err != nil {
		t.Fatalf("DoWithResult() error = %v", err)
	}
	if got != "payload" {
		t.Errorf("DoWithResult() = %q, want payload", got)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", errs.New(errs.ErrorTypeNetwork, "x"), true},
		{"rate limit", errs.New(errs.ErrorTypeRateLimit, "x"), true},
		{"server", errs.New(errs.ErrorTypeServerError, "x"), true},
		{"auth", errs.New(errs.ErrorTypeAuth, "x"), false},
		{"not found", errs.New(errs.ErrorTypeNotFound, "x"), false},
		{"cancelled", context.Canceled, false},
		{"plain", errors.New("mystery"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DefaultRetryIf(tc.err); got != tc.want {
				t.Errorf("DefaultRetryIf(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
