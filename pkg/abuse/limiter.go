package abuse

import "time"

// WindowLimiter accepts at most max events per player inside any trailing
// window. Each player keeps a ring of the last max accepted timestamps, so a
// check is O(1): the event is accepted when the ring is not full or when its
// oldest entry has left the window.
type WindowLimiter struct {
	windowMs int64
	max      int
	players  map[string]*ring
}

type ring struct {
	stamps []int64
	next   int
	full   bool
}

func NewWindowLimiter(window time.Duration, max int) *WindowLimiter {
	if max < 1 {
		max = 1
	}
	return &WindowLimiter{
		windowMs: window.Milliseconds(),
		max:      max,
		players:  make(map[string]*ring),
	}
}

// TryConsume records an event for uid at nowMs if it fits in the window.
// Rejected events are not recorded.
func (l *WindowLimiter) TryConsume(uid string, nowMs int64) bool {
	r, ok := l.players[uid]
	if !ok {
		r = &ring{stamps: make([]int64, l.max)}
		l.players[uid] = r
	}
	if r.full && nowMs-r.stamps[r.next] < l.windowMs {
		return false
	}
	r.stamps[r.next] = nowMs
	r.next = (r.next + 1) % l.max
	if r.next == 0 {
		r.full = true
	}
	return true
}

// Forget drops all state for uid.
func (l *WindowLimiter) Forget(uid string) {
	delete(l.players, uid)
}
