package game

import "container/heap"

type timerKind int

const (
	timerSweep timerKind = iota
	timerBroadcast
	timerPartyResync
)

// timer fires at fireAtMs. Periodic timers keep their phase: missed
// occurrences are skipped, never replayed in a burst.
type timer struct {
	kind     timerKind
	fireAtMs int64
	periodMs int64
	uid      string
	seq      uint64
	index    int
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].fireAtMs != h[j].fireAtMs {
		return h[i].fireAtMs < h[j].fireAtMs
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x interface{}) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

type scheduler struct {
	timers timerHeap
	seq    uint64
}

func newScheduler() *scheduler {
	return &scheduler{}
}

func (s *scheduler) every(kind timerKind, startMs, periodMs int64) {
	s.push(&timer{kind: kind, fireAtMs: startMs + periodMs, periodMs: periodMs})
}

func (s *scheduler) after(kind timerKind, fireAtMs int64, uid string) {
	s.push(&timer{kind: kind, fireAtMs: fireAtMs, uid: uid})
}

func (s *scheduler) push(t *timer) {
	s.seq++
	t.seq = s.seq
	heap.Push(&s.timers, t)
}

// next pops the earliest timer due at nowMs and returns a copy of it.
// A periodic timer is pushed back at its next occurrence after nowMs.
func (s *scheduler) next(nowMs int64) (timer, bool) {
	if len(s.timers) == 0 || s.timers[0].fireAtMs > nowMs {
		return timer{}, false
	}
	t := heap.Pop(&s.timers).(*timer)
	fired := *t
	if t.periodMs > 0 {
		missed := (nowMs - t.fireAtMs) / t.periodMs
		t.fireAtMs += (missed + 1) * t.periodMs
		s.push(t)
	}
	return fired, true
}

func (s *scheduler) len() int {
	return len(s.timers)
}
