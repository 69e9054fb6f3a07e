package compositor

import "github.com/1broseidon/xcomp/internal/platform"

// Registry holds the tracked windows in stacking order, topmost first.
// Lookups scan linearly; live window counts stay small.
type Registry struct {
	windows []*Window
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Len returns the number of tracked windows.
func (r *Registry) Len() int { return len(r.windows) }

// At returns the window at stacking index i (0 is topmost).
func (r *Registry) At(i int) *Window { return r.windows[i] }

// IDs returns the window identifiers topmost first.
func (r *Registry) IDs() []platform.WindowID {
	ids := make([]platform.WindowID, len(r.windows))
	for i, w := range r.windows {
		ids[i] = w.ID
	}
	return ids
}

// Find returns the record for id, or nil.
func (r *Registry) Find(id platform.WindowID) *Window {
	if i := r.index(id); i >= 0 {
		return r.windows[i]
	}
	return nil
}

// InsertTop places w at the top of the stack. It returns false, leaving the
// registry unchanged, when a record with the same ID is already present.
func (r *Registry) InsertTop(w *Window) bool {
	if r.index(w.ID) >= 0 {
		return false
	}
	r.windows = append([]*Window{w}, r.windows...)
	return true
}

// Remove drops the record for id and returns it, or nil when absent.
func (r *Registry) Remove(id platform.WindowID) *Window {
	i := r.index(id)
	if i < 0 {
		return nil
	}
	w := r.windows[i]
	r.windows = append(r.windows[:i], r.windows[i+1:]...)
	return w
}

// MoveBefore relocates id to sit immediately above target. A target of None
// sends the window to the bottom. When target is given but not tracked the
// window is removed and not reinserted: the returned record is non-nil and
// placed is false, leaving the caller to decide what to do with it.
func (r *Registry) MoveBefore(id, target platform.WindowID) (w *Window, placed bool) {
	w = r.Remove(id)
	if w == nil {
		return nil, false
	}
	if target == platform.None {
		r.windows = append(r.windows, w)
		return w, true
	}
	i := r.index(target)
	if i < 0 {
		return w, false
	}
	r.windows = append(r.windows, nil)
	copy(r.windows[i+1:], r.windows[i:])
	r.windows[i] = w
	return w, true
}

// MoveToTop relocates id to the top of the stack.
func (r *Registry) MoveToTop(id platform.WindowID) bool {
	w := r.Remove(id)
	if w == nil {
		return false
	}
	return r.InsertTop(w)
}

func (r *Registry) index(id platform.WindowID) int {
	for i, w := range r.windows {
		if w.ID == id {
			return i
		}
	}
	return -1
}
