// Package smoothing turns noisy per-frame match flags into a stable verdict.
package smoothing

// DefaultWindowSize is the number of consecutive evaluated frames that
// must all match before a match is confirmed.
const DefaultWindowSize = 3

// Window is a fixed-size FIFO of the most recent per-frame match flags.
// It is not safe for concurrent use; the owning session serialises access.
type Window struct {
	size    int
	entries []bool
}

// NewWindow returns an empty window of the given size. Sizes below 1 use
// DefaultWindowSize.
func NewWindow(size int) *Window {
	if size < 1 {
		size = DefaultWindowSize
	}
	return &Window{size: size, entries: make([]bool, 0, size+1)}
}

// AddFrame records one evaluated frame and reports whether the window is
// full and every entry in it matched. The oldest entry is evicted once
// the window overflows; a single false blocks confirmation until it
// slides out.
func (w *Window) AddFrame(isMatch bool) bool {
	w.entries = append(w.entries, isMatch)
	if len(w.entries) > w.size {
		copy(w.entries, w.entries[1:])
		w.entries = w.entries[:w.size]
	}
	return w.Confirmed()
}

// Confirmed reports the current verdict without adding a frame.
func (w *Window) Confirmed() bool {
	if len(w.entries) < w.size {
		return false
	}
	for _, e := range w.entries {
		if !e {
			return false
		}
	}
	return true
}

// Reset empties the window. Sessions call it on start and stop only.
func (w *Window) Reset() {
	w.entries = w.entries[:0]
}

// Len returns the number of flags currently held.
func (w *Window) Len() int { return len(w.entries) }

// Size returns the configured window size.
func (w *Window) Size() int { return w.size }
