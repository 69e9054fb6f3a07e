package compositor

import "github.com/1broseidon/xcomp/internal/platform"

// Accumulator collects screen damage between flushes together with the
// geometry-dirty flag. It owns at most one region handle.
type Accumulator struct {
	regions       platform.Regions
	pending       platform.Region
	geometryDirty bool
}

// NewAccumulator returns an empty accumulator whose geometry is dirty, so the
// first paint computes every cached region.
func NewAccumulator(regions platform.Regions) *Accumulator {
	return &Accumulator{regions: regions, geometryDirty: true}
}

// Add merges r into the pending damage. Ownership of r transfers to the
// accumulator: r is either adopted or destroyed after the union, and must
// not be used by the caller afterwards.
func (a *Accumulator) Add(r platform.Region) {
	if r == platform.None {
		return
	}
	if a.pending == platform.None {
		a.pending = r
		return
	}
	a.regions.UnionRegion(a.pending, a.pending, r)
	a.regions.DestroyRegion(r)
}

// Pending reports whether any damage is waiting.
func (a *Accumulator) Pending() bool {
	return a.pending != platform.None
}

// Take hands the pending damage to the caller and empties the accumulator.
func (a *Accumulator) Take() platform.Region {
	r := a.pending
	a.pending = platform.None
	return r
}

// MarkGeometry records that stacking, mapping, geometry or shape changed.
func (a *Accumulator) MarkGeometry() {
	a.geometryDirty = true
}

// GeometryDirty reports whether cached geometry regions are stale.
func (a *Accumulator) GeometryDirty() bool {
	return a.geometryDirty
}

// ClearGeometry is called once a paint pass has recomputed the caches.
func (a *Accumulator) ClearGeometry() {
	a.geometryDirty = false
}
