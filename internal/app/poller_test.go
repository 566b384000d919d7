package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/five82/espkey/internal/devicelog"
	"github.com/five82/espkey/internal/logging"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second},
		{"many failures capped", 100, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_LongBaseIsNotShortened(t *testing.T) {
	base := time.Minute
	if got := calculateBackoff(3, base); got != base {
		t.Errorf("calculateBackoff(3, %v) = %v, want %v", base, got, base)
	}
}

type flakyDevice struct {
	errs []error
	log  devicelog.Log
}

func (f *flakyDevice) GetLog(context.Context) (devicelog.Log, error) {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.log, nil
}

func TestPoller_BacksOffAndRecovers(t *testing.T) {
	offline := errors.New("offline")
	dev := &flakyDevice{errs: []error{offline, offline}, log: devicelog.Parse("1000 boot\n")}
	p := NewPoller(dev, 2*time.Second, logging.Discard())

	wantNext := []time.Duration{4 * time.Second, 8 * time.Second, 2 * time.Second}
	for i, want := range wantNext {
		entries, err := p.Poll(context.Background())
		if i < 2 && !errors.Is(err, offline) {
			t.Fatalf("poll %d error = %v, want %v", i, err, offline)
		}
		if i == 2 && (err != nil || len(entries) != 1) {
			t.Fatalf("poll %d = %d entries, %v; want 1 entry", i, len(entries), err)
		}
		if got := p.Next(); got != want {
			t.Errorf("after poll %d Next() = %v, want %v", i, got, want)
		}
	}
}

func TestNewPoller_DefaultInterval(t *testing.T) {
	p := NewPoller(&flakyDevice{}, 0, nil)
	if got := p.Next(); got != defaultPollInterval {
		t.Errorf("Next() = %v, want %v", got, defaultPollInterval)
	}
}
