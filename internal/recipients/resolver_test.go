package recipients

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/whisper/battlewatch/internal/directory"
)

type fakeFinder struct {
	byName map[string][]directory.Subscriber
	errs   map[string]error
	calls  []string
}

func (f *fakeFinder) FindByDisplayName(_ context.Context, name string) ([]directory.Subscriber, error) {
	f.calls = append(f.calls, name)
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return f.byName[name], nil
}

func sub(handle, name string) directory.Subscriber {
	return directory.Subscriber{Handle: handle, DisplayName: name}
}

func handlesOf(subs []directory.Subscriber) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.Handle
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestResolve_DefenderAndOwner(t *testing.T) {
	f := &fakeFinder{byName: map[string][]directory.Subscriber{
		"Carol": {sub("100", "Carol")},
		"Alice": {sub("200", "Alice"), sub("201", "Alice")},
	}}
	r := NewResolver(f, zap.NewNop())

	subs, err := r.Resolve(context.Background(), "Carol", "Alice")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got, want := handlesOf(subs), []string{"100", "200", "201"}; !equal(got, want) {
		t.Errorf("handles = %v, want %v", got, want)
	}
}

// TestResolve_SameNameOnce covers a subscriber who is both the defender and
// the realm owner.
func TestResolve_SameNameOnce(t *testing.T) {
	f := &fakeFinder{byName: map[string][]directory.Subscriber{
		"Alice": {sub("200", "Alice")},
	}}
	r := NewResolver(f, zap.NewNop())

	subs, err := r.Resolve(context.Background(), "Alice", "Alice")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got := handlesOf(subs); !equal(got, []string{"200"}) {
		t.Errorf("handles = %v, want [200]", got)
	}
	if len(f.calls) != 1 {
		t.Errorf("directory queried %d times, want 1", len(f.calls))
	}
}

// TestResolve_HandleUnderBothNames covers a directory that returns the same
// handle for two different names.
func TestResolve_HandleUnderBothNames(t *testing.T) {
	f := &fakeFinder{byName: map[string][]directory.Subscriber{
		"Carol": {sub("300", "Carol")},
		"Alice": {sub("300", "Alice"), sub("200", "Alice")},
	}}
	r := NewResolver(f, zap.NewNop())

	subs, _ := r.Resolve(context.Background(), "Carol", "Alice")
	if got, want := handlesOf(subs), []string{"300", "200"}; !equal(got, want) {
		t.Errorf("handles = %v, want %v", got, want)
	}
}

func TestResolve_NoOwner(t *testing.T) {
	f := &fakeFinder{byName: map[string][]directory.Subscriber{
		"Carol": {sub("100", "Carol")},
	}}
	r := NewResolver(f, zap.NewNop())

	subs, err := r.Resolve(context.Background(), "Carol", "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got := handlesOf(subs); !equal(got, []string{"100"}) {
		t.Errorf("handles = %v, want [100]", got)
	}
	if len(f.calls) != 1 || f.calls[0] != "Carol" {
		t.Errorf("calls = %v, want [Carol]", f.calls)
	}
}

func TestResolve_SkipsUnknownSentinel(t *testing.T) {
	f := &fakeFinder{}
	r := NewResolver(f, zap.NewNop())

	subs, err := r.Resolve(context.Background(), "Unknown", "Unknown")
	if err != nil || len(subs) != 0 {
		t.Errorf("Resolve() = %v, %v; want empty, nil", subs, err)
	}
	if len(f.calls) != 0 {
		t.Errorf("directory queried for sentinel names: %v", f.calls)
	}
}

func TestResolve_PartialFailure(t *testing.T) {
	dbErr := errors.New("connection refused")
	f := &fakeFinder{
		byName: map[string][]directory.Subscriber{"Alice": {sub("200", "Alice")}},
		errs:   map[string]error{"Carol": dbErr},
	}
	r := NewResolver(f, zap.NewNop())

	subs, err := r.Resolve(context.Background(), "Carol", "Alice")
	if !errors.Is(err, dbErr) {
		t.Errorf("error = %v, want wrapped %v", err, dbErr)
	}
	if got := handlesOf(subs); !equal(got, []string{"200"}) {
		t.Errorf("handles = %v, want [200] despite the failed lookup", got)
	}
}
