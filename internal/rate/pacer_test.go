package rate

import (
	"context"
	"testing"
	"time"
)

func TestNewPacer(t *testing.T) {
	tests := []struct {
		name      string
		perSecond float64
		want      time.Duration
	}{
		{"hundred per second", 100, 10 * time.Millisecond},
		{"fractional", 0.5, 2 * time.Second},
		{"zero disables pacing", 0, 0},
		{"negative disables pacing", -10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewPacer(tt.perSecond).Interval(); got != tt.want {
				t.Errorf("Interval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPacer_NextSpacing(t *testing.T) {
	p := NewPacer(100)

	first := p.Next()
	second := p.Next()
	third := p.Next()

	if d := time.Until(first); d > 0 {
		t.Errorf("first slot should be immediate, starts in %v", d)
	}
	if d := second.Sub(first); d != 10*time.Millisecond {
		t.Errorf("second slot after %v, want 10ms", d)
	}
	if d := third.Sub(second); d != 10*time.Millisecond {
		t.Errorf("third slot after %v, want 10ms", d)
	}
	if p.Events() != 3 {
		t.Errorf("Events() = %d, want 3", p.Events())
	}
}

func TestPacer_NoBurstAfterIdle(t *testing.T) {
	p := NewPacer(1000)
	p.Next()

	time.Sleep(20 * time.Millisecond)
	resumed := p.Next()
	following := p.Next()

	if d := following.Sub(resumed); d != time.Millisecond {
		t.Errorf("slots after idle spaced %v, want 1ms", d)
	}
}

func TestPacer_Wait(t *testing.T) {
	p := NewPacer(50)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("three waits at 50/s took %v, want at least 40ms", elapsed)
	}
}

func TestPacer_WaitCancelled(t *testing.T) {
	p := NewPacer(0.1)
	ctx, cancel := context.WithCancel(context.Background())
	p.Next()
	cancel()

	if err := p.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestPacer_Unpaced(t *testing.T) {
	p := NewPacer(0)
	start := time.Now()
	for i := 0; i < 1000; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("unpaced waits took %v", elapsed)
	}
}
