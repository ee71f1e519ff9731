// Package eventbus defines the tick-based scheduling capability the FDC
// and the virtual drive array require (spec.md §5, §6): a sink that can
// queue a callback for a future tick, cancel it, and report the current
// tick. Production embedders (the CPU/machine glue, out of scope for
// this module) supply their own Bus tied to their instruction clock;
// Wheel is a minimal reference implementation used by this module's own
// tests to drive end-to-end scenarios without a real machine.
package eventbus

import "container/heap"

// Handle identifies a previously queued event so it can be canceled.
type Handle uint64

// Bus is the scheduling capability required by wd279x and vdrive.
type Bus interface {
	// Queue schedules cb to run when CurrentTick reaches atTick.
	// atTick in the past runs on the next Advance/RunUntilIdle call.
	Queue(atTick uint64, cb func()) Handle

	// Cancel dequeues a previously queued event. Canceling an event
	// that already fired, or an unknown handle, is a no-op.
	Cancel(h Handle)

	// CurrentTick returns the bus's current tick count.
	CurrentTick() uint64
}

type event struct {
	at     uint64
	seq    uint64
	cb     func()
	handle Handle
	index  int
}

type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq // same-tick events run in insertion order
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *eventHeap) Push(x any) {
	e := x.(*event)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Wheel is a single-threaded, cooperatively driven event bus: nothing
// runs until Advance or RunUntilIdle is called, matching the cooperative
// scheduling model spec.md §5 requires (no goroutines, no locks).
type Wheel struct {
	tick    uint64
	heap    eventHeap
	nextSeq uint64
	byID    map[Handle]*event
	nextID  Handle
}

// NewWheel returns an empty event bus starting at tick 0.
func NewWheel() *Wheel {
	return &Wheel{byID: make(map[Handle]*event)}
}

// CurrentTick implements Bus.
func (w *Wheel) CurrentTick() uint64 { return w.tick }

// Queue implements Bus.
func (w *Wheel) Queue(atTick uint64, cb func()) Handle {
	w.nextID++
	e := &event{at: atTick, seq: w.nextSeq, cb: cb, handle: w.nextID}
	w.nextSeq++
	heap.Push(&w.heap, e)
	w.byID[e.handle] = e
	return e.handle
}

// Cancel implements Bus.
func (w *Wheel) Cancel(h Handle) {
	e, ok := w.byID[h]
	if !ok || e.index < 0 {
		return
	}
	heap.Remove(&w.heap, e.index)
	delete(w.byID, h)
}

// Advance runs every event due at or before tick, in (tick, insertion)
// order, then sets CurrentTick to tick. Callbacks that queue further
// events see them interleaved correctly because the heap is re-examined
// after each pop.
func (w *Wheel) Advance(tick uint64) {
	for w.heap.Len() > 0 && w.heap[0].at <= tick {
		e := heap.Pop(&w.heap).(*event)
		delete(w.byID, e.handle)
		w.tick = e.at
		e.cb()
	}
	if tick > w.tick {
		w.tick = tick
	}
}

// RunUntilIdle drains every pending event, advancing the tick to each
// one in turn. Useful in tests that don't care about wall-clock pacing,
// only about final state after a command completes.
func (w *Wheel) RunUntilIdle(maxEvents int) {
	for n := 0; w.heap.Len() > 0; n++ {
		if maxEvents > 0 && n >= maxEvents {
			return
		}
		next := w.heap[0].at
		w.Advance(next)
	}
}
