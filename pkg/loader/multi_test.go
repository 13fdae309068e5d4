package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vanderheijden86/canopy/pkg/model"
)

type fakeSource struct {
	name    string
	records []model.Record
	delay   time.Duration
	err     error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Load(ctx context.Context) ([]model.Record, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func TestMultiSource_KeepsOrder(t *testing.T) {
	slow := &fakeSource{name: "slow", delay: 30 * time.Millisecond, records: []model.Record{{ID: "a"}, {ID: "b", Parent: "a"}}}
	fast := &fakeSource{name: "fast", records: []model.Record{{ID: "c", Parent: "a"}}}

	src := NewMultiSource(slow, fast)
	records, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"a<", "b<a", "c<a"}, ids(records)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if src.Name() != "slow, fast" {
		t.Errorf("Name() = %q", src.Name())
	}
}

func TestMultiSource_FirstErrorWins(t *testing.T) {
	boom := errors.New("boom")
	hang := &fakeSource{name: "hang", delay: time.Hour}
	bad := &fakeSource{name: "bad", err: boom}

	done := make(chan error, 1)
	go func() {
		_, err := NewMultiSource(hang, bad).Load(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("failure did not cancel the remaining loads")
	}
}

func TestNewMultiSource_Single(t *testing.T) {
	only := &fakeSource{name: "only"}
	if got := NewMultiSource(only); got != Source(only) {
		t.Errorf("expected single source to be returned unwrapped, got %T", got)
	}
}
