package rebuild

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evlaV/steamos-atomupd"
)

func TestRebuildStoresCatalogAndDiagnostics(t *testing.T) {
	want := atomupd.NewCatalog(nil)
	m := New(func(ctx context.Context) (*atomupd.Catalog, atomupd.Diagnostics, error) {
		return want, atomupd.Diagnostics{Generation: want.Generation}, nil
	}, 0)

	if m.Catalog() != nil {
		t.Fatal("expected no catalog before the first rebuild")
	}
	if err := m.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.Catalog() != want {
		t.Error("Rebuild did not store the built catalog")
	}
}

func TestRebuildFailureLeavesPriorCatalogInPlace(t *testing.T) {
	first := atomupd.NewCatalog(nil)
	calls := 0
	m := New(func(ctx context.Context) (*atomupd.Catalog, atomupd.Diagnostics, error) {
		calls++
		if calls == 1 {
			return first, atomupd.Diagnostics{}, nil
		}
		return nil, atomupd.Diagnostics{}, errors.New("scan failed")
	}, 0)

	if err := m.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.Rebuild(context.Background()); err == nil {
		t.Fatal("expected the second rebuild to fail")
	}
	if m.Catalog() != first {
		t.Error("a failed rebuild must not clobber the previously built catalog")
	}
}

func TestNotifyCoalescesWithinDebounceWindow(t *testing.T) {
	var builds atomic.Int32
	m := New(func(ctx context.Context) (*atomupd.Catalog, atomupd.Diagnostics, error) {
		builds.Add(1)
		return atomupd.NewCatalog(nil), atomupd.Diagnostics{}, nil
	}, time.Hour)

	for i := 0; i < 5; i++ {
		if err := m.Notify(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := builds.Load(); got != 1 {
		t.Errorf("got %d builds from a burst of 5 Notify calls, want 1", got)
	}
}

func TestNotifyWithZeroDebounceRebuildsEveryTime(t *testing.T) {
	var builds atomic.Int32
	m := New(func(ctx context.Context) (*atomupd.Catalog, atomupd.Diagnostics, error) {
		builds.Add(1)
		return atomupd.NewCatalog(nil), atomupd.Diagnostics{}, nil
	}, 0)

	for i := 0; i < 3; i++ {
		if err := m.Notify(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := builds.Load(); got != 3 {
		t.Errorf("got %d builds, want 3 with debouncing disabled", got)
	}
}
