package ratelimit

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestNewLimiterNonPositiveRate(t *testing.T) {
	if NewLimiter(0) != nil {
		t.Error("zero rate must disable limiting")
	}
	if NewLimiter(-1) != nil {
		t.Error("negative rate must disable limiting")
	}
}

func TestNilLimiterIsUnlimited(t *testing.T) {
	var lim *Limiter
	if err := lim.Take(context.Background(), 1<<30); err != nil {
		t.Fatal(err)
	}

	src := strings.NewReader("payload")
	if r := NewReader(context.Background(), src, nil); r != io.Reader(src) {
		t.Error("nil limiter must return the reader unchanged")
	}
}

func TestTakeWithinBudget(t *testing.T) {
	lim := NewLimiter(1 << 20)

	// The bucket starts full, so a request within it returns promptly.
	start := time.Now()
	if err := lim.Take(context.Background(), 1024); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("in-budget take blocked for %v", elapsed)
	}
}

func TestTakeClampsOversizedRequest(t *testing.T) {
	lim := NewLimiter(1 << 20)

	// Larger than the whole bucket; clamping keeps it satisfiable.
	done := make(chan error, 1)
	go func() { done <- lim.Take(context.Background(), 1<<40) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("oversized take deadlocked")
	}
}

func TestTakeCancellation(t *testing.T) {
	lim := NewLimiter(minBucket) // bucket == rate, one second of budget

	// Drain the bucket so the next take has to wait.
	if err := lim.Take(context.Background(), minBucket); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lim.Take(ctx, minBucket) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled take never returned")
	}
}

func TestReaderPreservesBytes(t *testing.T) {
	payload := bytes.Repeat([]byte("shelfsync"), 1000)
	lim := NewLimiter(10 << 20)

	r := NewReader(context.Background(), bytes.NewReader(payload), lim)
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("read %d bytes, want %d, content differs", len(got), len(payload))
	}
}

func TestReaderCancellation(t *testing.T) {
	lim := NewLimiter(minBucket)
	if err := lim.Take(context.Background(), minBucket); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReader(ctx, strings.NewReader("data"), lim)
	if _, err := io.ReadAll(r); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
