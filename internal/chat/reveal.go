package chat

// Reveal is the FIFO character queue behind the simulated human-speed
// typing effect. Fragments arrive in bursts from the wire; a periodic tick
// drains one rune at a time into the streaming tail of the timeline.
//
// The active latch records whether a tick driver is currently scheduled, so
// that re-enqueueing while one is running never spawns a second driver.
// Reveal itself holds no timer; the UI owns the clock and calls back in.
type Reveal struct {
	queue  []rune
	active bool
}

// Enqueue appends a fragment to the queue and reports whether the caller
// must start a tick driver. It returns true only when no driver is active
// and the queue has work.
func (r *Reveal) Enqueue(fragment string) bool {
	r.queue = append(r.queue, []rune(fragment)...)
	if r.active || len(r.queue) == 0 {
		return false
	}
	r.active = true
	return true
}

// Next pops one rune. ok is false on an empty queue, which also releases the
// driver latch: draining an empty queue is a no-op that stops the ticker.
func (r *Reveal) Next() (ch rune, ok bool) {
	if len(r.queue) == 0 {
		r.active = false
		return 0, false
	}
	ch = r.queue[0]
	r.queue = r.queue[1:]
	return ch, true
}

// Clear drops all pending characters and releases the driver latch. Called
// synchronously when a final answer supersedes in-flight text and on thread
// switch or channel close, so no stale tick can append ghost characters.
func (r *Reveal) Clear() {
	r.queue = nil
	r.active = false
}

func (r *Reveal) Len() int { return len(r.queue) }

func (r *Reveal) Active() bool { return r.active }
