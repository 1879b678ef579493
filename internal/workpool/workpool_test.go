package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestRun_ResultsInOrder(t *testing.T) {
	got, err := Run(context.Background(), 50, 4, func(_ context.Context, i int) (int, error) {
		return i * i, nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(got) != 50 {
		t.Fatalf("len = %d, want 50", len(got))
	}
	for i, v := range got {
		if v != i*i {
			t.Errorf("results[%d] = %d, want %d", i, v, i*i)
		}
	}
}

func TestRun_Limit(t *testing.T) {
	var inFlight, peak atomic.Int32
	_, err := Run(context.Background(), 40, 3, func(_ context.Context, i int) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		inFlight.Add(-1)
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if p := peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
}

func TestRun_FirstError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), 10, 2, func(_ context.Context, i int) (int, error) {
		if i == 3 {
			return 0, boom
		}
		return i, nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	_, err := Run(ctx, 10, 2, func(_ context.Context, i int) (int, error) {
		calls.Add(1)
		return i, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls.Load() != 0 {
		t.Errorf("fn called %d times after cancel", calls.Load())
	}
}

func TestRun_Empty(t *testing.T) {
	got, err := Run(context.Background(), 0, 4, func(_ context.Context, i int) (int, error) {
		t.Fatal("fn should not be called")
		return 0, nil
	})
	if err != nil || got != nil {
		t.Errorf("Run(0) = %v, %v; want nil, nil", got, err)
	}
}

func TestChunks(t *testing.T) {
	tests := []struct {
		total, parts int
		want         [][2]int
	}{
		{10, 3, [][2]int{{0, 4}, {4, 7}, {7, 10}}},
		{4, 4, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}}},
		{2, 5, [][2]int{{0, 1}, {1, 2}}},
		{7, 0, [][2]int{{0, 7}}},
		{0, 3, nil},
	}
	for _, tt := range tests {
		got := Chunks(tt.total, tt.parts)
		if len(got) != len(tt.want) {
			t.Errorf("Chunks(%d, %d) = %v, want %v", tt.total, tt.parts, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Chunks(%d, %d) = %v, want %v", tt.total, tt.parts, got, tt.want)
				break
			}
		}
	}
}
