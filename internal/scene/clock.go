package scene

import "sync/atomic"

// GestureClock mints edit numbers at explicit gesture boundaries.
//
// Edits sharing an edit number coalesce into one undo step, so the clock
// advances once per discrete user gesture (a drag, a nudge, a paste), not
// once per edit. The boundary is an explicit API call; nothing in this
// core hooks global input events.
//
// Thread-safety: safe for concurrent use (atomic operations), though the
// single-writer dispatch model means one goroutine typically calls Begin.
type GestureClock struct {
	seq atomic.Int64
}

// NewGestureClock creates a clock whose first gesture is numbered 1.
func NewGestureClock() *GestureClock {
	return &GestureClock{}
}

// Begin starts a new gesture and returns its edit number. Thread the
// returned value through every EditEntities action the gesture emits.
func (c *GestureClock) Begin() int64 {
	return c.seq.Add(1)
}

// Current returns the most recently issued edit number without starting a
// new gesture.
func (c *GestureClock) Current() int64 {
	return c.seq.Load()
}
