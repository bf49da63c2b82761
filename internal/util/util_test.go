package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeApplyURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "strips tracking params",
			in:   "https://jobs.acme.com/swe?utm_source=board&utm_medium=feed&id=42",
			want: "https://jobs.acme.com/swe?id=42",
		},
		{
			name: "unwraps redirector",
			in:   "https://redirect.example.com/out?url=https%3A%2F%2Fjobs.acme.com%2Fswe%3Futm_source%3Dx",
			want: "https://jobs.acme.com/swe",
		},
		{
			name: "trims trailing slash",
			in:   "https://jobs.acme.com/swe/",
			want: "https://jobs.acme.com/swe",
		},
		{
			name: "root path kept",
			in:   "https://jobs.acme.com/",
			want: "https://jobs.acme.com/",
		},
		{
			name:    "rejects non-http scheme",
			in:      "javascript:alert(1)",
			wantErr: true,
		},
		{
			name:    "rejects mailto",
			in:      "mailto:jobs@acme.com",
			wantErr: true,
		},
		{
			name: "surrounding whitespace tolerated",
			in:   "  https://jobs.acme.com/swe  ",
			want: "https://jobs.acme.com/swe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeApplyURL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeApplyURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeApplyURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"**Acme Corp**", "Acme Corp"},
		{"[Apply](https://a.co/x)", "Apply"},
		{"<a href=\"x\">Apply</a>", "Apply"},
		{"  SWE   Intern\t(Remote) ", "SWE Intern (Remote)"},
		{"`code` and *emphasis*", "code and emphasis"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanCell(tt.in); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSafeAtoi(t *testing.T) {
	if got := SafeAtoi(" 42 "); got != 42 {
		t.Errorf("SafeAtoi(42) = %d", got)
	}
	if got := SafeAtoi("not a number"); got != 0 {
		t.Errorf("SafeAtoi(garbage) = %d, want 0", got)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func(attempt int) error {
		if attempt != attempts {
			t.Errorf("attempt number = %d, want %d", attempt, attempts)
		}
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryWithBackoff() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), 2, time.Millisecond, func(int) error {
		attempts++
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("RetryWithBackoff() should return the final error")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (initial try plus 2 retries)", attempts)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryWithBackoff(ctx, 3, time.Minute, func(int) error {
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RetryWithBackoff() with cancelled ctx = %v, want context.Canceled", err)
	}
}
