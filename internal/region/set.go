// Package region implements rectangle-set algebra over screen pixels.
//
// A Set is a list of pairwise disjoint, non-empty rectangles. All operations
// return new sets and never modify their receivers, so a Set value can be
// shared freely.
package region

import (
	"sort"
	"strings"
)

// Set is a union of disjoint rectangles. The zero value is the empty set.
type Set struct {
	rects []Rect
}

// New returns the set covering the union of rects.
func New(rects ...Rect) Set {
	var s Set
	for _, r := range rects {
		s = s.Union(Set{rects: nonEmpty(r)})
	}
	return s
}

func nonEmpty(r Rect) []Rect {
	if r.Empty() {
		return nil
	}
	return []Rect{r}
}

// Rects returns a copy of the disjoint rectangles making up s, sorted by
// row then column.
func (s Set) Rects() []Rect {
	out := make([]Rect, len(s.rects))
	copy(out, s.rects)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// Empty reports whether s covers no pixels.
func (s Set) Empty() bool {
	return len(s.rects) == 0
}

// Area returns the number of pixels in s.
func (s Set) Area() int {
	total := 0
	for _, r := range s.rects {
		total += r.Area()
	}
	return total
}

// Bounds returns the bounding rectangle of s.
func (s Set) Bounds() Rect {
	var b Rect
	for _, r := range s.rects {
		b = b.Bounds(r)
	}
	return b
}

// Contains reports whether the pixel at (x, y) is in s.
func (s Set) Contains(x, y int) bool {
	for _, r := range s.rects {
		if r.Contains(x, y) {
			return true
		}
	}
	return false
}

// Union returns the pixels in s or o.
func (s Set) Union(o Set) Set {
	if s.Empty() {
		return o.clone()
	}
	out := s.clone()
	out.rects = append(out.rects, o.Subtract(s).rects...)
	return out
}

// Subtract returns the pixels in s that are not in o.
func (s Set) Subtract(o Set) Set {
	remaining := s.clone().rects
	for _, cut := range o.rects {
		var next []Rect
		for _, r := range remaining {
			next = append(next, r.subtract(cut)...)
		}
		remaining = next
		if len(remaining) == 0 {
			break
		}
	}
	return Set{rects: remaining}
}

// Intersect returns the pixels in both s and o.
func (s Set) Intersect(o Set) Set {
	var out []Rect
	for _, a := range s.rects {
		for _, b := range o.rects {
			if isect := a.Intersect(b); !isect.Empty() {
				out = append(out, isect)
			}
		}
	}
	return Set{rects: out}
}

// IntersectRect returns the pixels of s inside r.
func (s Set) IntersectRect(r Rect) Set {
	return s.Intersect(Set{rects: nonEmpty(r)})
}

// Translate returns s moved by (dx, dy).
func (s Set) Translate(dx, dy int) Set {
	out := make([]Rect, len(s.rects))
	for i, r := range s.rects {
		out[i] = r.Translate(dx, dy)
	}
	return Set{rects: out}
}

// Equal reports whether s and o cover exactly the same pixels, regardless of
// how either is decomposed into rectangles.
func (s Set) Equal(o Set) bool {
	return s.Area() == o.Area() && s.Subtract(o).Empty() && o.Subtract(s).Empty()
}

func (s Set) clone() Set {
	if len(s.rects) == 0 {
		return Set{}
	}
	out := make([]Rect, len(s.rects))
	copy(out, s.rects)
	return Set{rects: out}
}

func (s Set) String() string {
	if s.Empty() {
		return "{}"
	}
	parts := make([]string, 0, len(s.rects))
	for _, r := range s.Rects() {
		parts = append(parts, r.String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}
