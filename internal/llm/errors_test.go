package llm

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"7", 7 * time.Second},
		{" 2 ", 2 * time.Second},
		{"0", 0},
		{"-3", 0},
		{now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	cause := errors.New("upstream")

	header := http.Header{}
	header.Set("Retry-After", "3")
	var rl *ErrRateLimit
	if err := classifyStatus(http.StatusTooManyRequests, header, cause); !errors.As(err, &rl) || rl.RetryAfter != 3*time.Second {
		t.Fatalf("429 = %v, want rate limit with 3s hint", err)
	}
	if err := classifyStatus(http.StatusTooManyRequests, nil, cause); !errors.As(err, &rl) || rl.RetryAfter != 0 {
		t.Fatalf("429 without header = %v, want rate limit without hint", err)
	}

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		var auth *ErrAuth
		if err := classifyStatus(status, nil, cause); !errors.As(err, &auth) || auth.Status != status {
			t.Errorf("%d = %v, want ErrAuth", status, err)
		}
	}

	for _, status := range []int{http.StatusBadRequest, http.StatusRequestTimeout, http.StatusBadGateway} {
		var unavail *ErrProviderUnavailable
		err := classifyStatus(status, nil, cause)
		if !errors.As(err, &unavail) {
			t.Errorf("%d = %v, want ErrProviderUnavailable", status, err)
		}
		if !errors.Is(err, cause) {
			t.Errorf("%d does not wrap the cause", status)
		}
	}
}
