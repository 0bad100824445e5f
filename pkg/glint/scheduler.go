package glint

import "sync"

// Scheduler decides when a store's notification thunks run. A store hands
// the scheduler one thunk per pending key; the scheduler must eventually
// invoke it and must never reorder thunks for the same key. The default,
// when no scheduler is configured, is immediate synchronous invocation.
type Scheduler func(notify func())

// Immediate invokes the notification synchronously.
func Immediate(notify func()) {
	notify()
}

// Deferred queues notification thunks until Flush, preserving FIFO order.
// Stores coalesce repeated writes to a still-pending key into the one
// thunk already queued, so a subscriber delivered by Flush observes the
// latest written value rather than each intermediate one.
//
//	d := glint.NewDeferred()
//	st := store.New("state", store.WithScheduler(d.Schedule))
//	...
//	d.Flush() // deliver everything queued so far
type Deferred struct {
	mu    sync.Mutex
	queue []func()
}

// NewDeferred creates an empty deferred scheduler.
func NewDeferred() *Deferred {
	return &Deferred{}
}

// Schedule enqueues a notification thunk. It is the Scheduler to hand to a
// store (pass the method value: d.Schedule).
func (d *Deferred) Schedule(notify func()) {
	d.mu.Lock()
	d.queue = append(d.queue, notify)
	d.mu.Unlock()
}

// Flush runs all queued thunks in the order they were scheduled. Thunks
// scheduled while flushing (a subscriber writing back into a store) are
// picked up by the same Flush call, so delivery reaches a fixed point.
func (d *Deferred) Flush() {
	for {
		d.mu.Lock()
		queue := d.queue
		d.queue = nil
		d.mu.Unlock()

		if len(queue) == 0 {
			return
		}
		for _, notify := range queue {
			notify()
		}
	}
}

// Pending reports how many thunks are waiting for Flush.
func (d *Deferred) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}
