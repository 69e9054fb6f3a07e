package compositor

import (
	"slices"
	"testing"

	"github.com/1broseidon/xcomp/internal/platform"
)

func registryOf(ids ...platform.WindowID) *Registry {
	r := NewRegistry()
	// ids are given topmost first.
	for i := len(ids) - 1; i >= 0; i-- {
		r.InsertTop(&Window{ID: ids[i]})
	}
	return r
}

func TestRegistryInsertTopRejectsDuplicates(t *testing.T) {
	r := registryOf(1, 2)
	if r.InsertTop(&Window{ID: 2}) {
		t.Fatalf("expected duplicate insert to be rejected")
	}
	if got := r.IDs(); !slices.Equal(got, []platform.WindowID{1, 2}) {
		t.Fatalf("expected order [1 2], got %v", got)
	}
}

func TestRegistryMoveBeforeTarget(t *testing.T) {
	r := registryOf(1, 2, 3, 4)

	w, placed := r.MoveBefore(4, 2)
	if w == nil || !placed {
		t.Fatalf("expected window 4 to be placed")
	}
	if got := r.IDs(); !slices.Equal(got, []platform.WindowID{1, 4, 2, 3}) {
		t.Fatalf("expected [1 4 2 3], got %v", got)
	}
}

func TestRegistryMoveBeforeNoneSendsToBottom(t *testing.T) {
	r := registryOf(1, 2, 3)

	if _, placed := r.MoveBefore(1, platform.None); !placed {
		t.Fatalf("expected move to bottom to succeed")
	}
	if got := r.IDs(); !slices.Equal(got, []platform.WindowID{2, 3, 1}) {
		t.Fatalf("expected [2 3 1], got %v", got)
	}
}

func TestRegistryMoveBeforeMissingTargetDropsWindow(t *testing.T) {
	r := registryOf(1, 2, 3)

	w, placed := r.MoveBefore(2, 99)
	if placed {
		t.Fatalf("expected placement to fail for unknown target")
	}
	if w == nil || w.ID != 2 {
		t.Fatalf("expected the dropped record to be returned, got %v", w)
	}
	if r.Find(2) != nil {
		t.Fatalf("expected window 2 to be gone from the registry")
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 windows left, got %d", r.Len())
	}
}

func TestRegistryMoveUnknownWindow(t *testing.T) {
	r := registryOf(1)
	if w, placed := r.MoveBefore(7, 1); w != nil || placed {
		t.Fatalf("expected no-op for unknown window, got %v %v", w, placed)
	}
	if r.MoveToTop(7) {
		t.Fatalf("expected MoveToTop of unknown window to fail")
	}
}

func TestRegistryMoveToTop(t *testing.T) {
	r := registryOf(1, 2, 3)
	if !r.MoveToTop(3) {
		t.Fatalf("expected MoveToTop to succeed")
	}
	if got := r.IDs(); !slices.Equal(got, []platform.WindowID{3, 1, 2}) {
		t.Fatalf("expected [3 1 2], got %v", got)
	}
}

func TestRegistryRemove(t *testing.T) {
	r := registryOf(1, 2, 3)
	if w := r.Remove(2); w == nil || w.ID != 2 {
		t.Fatalf("expected to remove window 2, got %v", w)
	}
	if w := r.Remove(2); w != nil {
		t.Fatalf("expected second remove to return nil, got %v", w)
	}
	if got := r.IDs(); !slices.Equal(got, []platform.WindowID{1, 3}) {
		t.Fatalf("expected [1 3], got %v", got)
	}
}
