package region

import "testing"

func TestRectSubtract_LeavesFrame(t *testing.T) {
	outer := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	inner := Rect{X: 3, Y: 3, Width: 4, Height: 4}

	parts := outer.subtract(inner)
	if len(parts) != 4 {
		t.Fatalf("expected 4 parts, got %d: %v", len(parts), parts)
	}
	total := 0
	for _, p := range parts {
		if p.Overlaps(inner) {
			t.Fatalf("part %v overlaps the removed rect", p)
		}
		total += p.Area()
	}
	if total != 100-16 {
		t.Fatalf("expected area 84, got %d", total)
	}
}

func TestSetUnion_OverlappingRectsCountedOnce(t *testing.T) {
	s := New(Rect{X: 0, Y: 0, Width: 10, Height: 10}, Rect{X: 5, Y: 5, Width: 10, Height: 10})
	if got := s.Area(); got != 175 {
		t.Fatalf("expected area 175, got %d", got)
	}
	if got := s.Bounds(); got != (Rect{X: 0, Y: 0, Width: 15, Height: 15}) {
		t.Fatalf("unexpected bounds %v", got)
	}
	if !s.Contains(14, 14) || s.Contains(14, 0) {
		t.Fatalf("containment wrong for %v", s)
	}
}

func TestSetSubtract_ToEmpty(t *testing.T) {
	s := New(Rect{X: 2, Y: 2, Width: 4, Height: 4})
	cover := New(Rect{X: 0, Y: 0, Width: 10, Height: 10})
	if got := s.Subtract(cover); !got.Empty() {
		t.Fatalf("expected empty, got %v", got)
	}
	if got := cover.Subtract(s).Area(); got != 84 {
		t.Fatalf("expected 84, got %d", got)
	}
}

func TestSetIntersect(t *testing.T) {
	a := New(Rect{X: 0, Y: 0, Width: 10, Height: 10}, Rect{X: 20, Y: 0, Width: 10, Height: 10})
	b := New(Rect{X: 5, Y: 5, Width: 20, Height: 2})

	got := a.Intersect(b)
	want := New(Rect{X: 5, Y: 5, Width: 5, Height: 2}, Rect{X: 20, Y: 5, Width: 5, Height: 2})
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSetTranslateAndEqual(t *testing.T) {
	s := New(Rect{X: 0, Y: 0, Width: 4, Height: 4})
	moved := s.Translate(3, -1)
	if !moved.Equal(New(Rect{X: 3, Y: -1, Width: 4, Height: 4})) {
		t.Fatalf("unexpected translation %v", moved)
	}
	if s.Equal(moved) {
		t.Fatalf("translated set must differ from the original")
	}

	// Same pixels, different decomposition.
	split := New(Rect{X: 0, Y: 0, Width: 2, Height: 4}, Rect{X: 2, Y: 0, Width: 2, Height: 4})
	if !split.Equal(s) {
		t.Fatalf("expected %v to equal %v", split, s)
	}
}

func TestNew_IgnoresEmptyRects(t *testing.T) {
	s := New(Rect{X: 5, Y: 5}, Rect{X: 1, Y: 1, Width: -3, Height: 2})
	if !s.Empty() {
		t.Fatalf("expected empty set, got %v", s)
	}
	if s.String() != "{}" {
		t.Fatalf("unexpected string %q", s.String())
	}
}
