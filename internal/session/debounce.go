package session

import (
	"sync"
	"time"
)

// DefaultDebounce merges bursts of key presses into one write.
const DefaultDebounce = 100 * time.Millisecond

type pendingCall struct {
	key     string
	seq     uint64
	fn      func()
	timer   *time.Timer
	claimed bool
}

// keyRunner serializes the calls of one key. lastRun is the sequence number
// of the newest call that has run; older calls arriving late are skipped.
type keyRunner struct {
	mu      sync.Mutex
	lastRun uint64
}

// Debouncer runs the latest function scheduled for a key once the key has
// been quiet for the delay. Earlier functions for the same key are dropped.
// Calls for one key never overlap, and a call never runs after a newer one
// for the same key has finished.
type Debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	seq     uint64
	pending map[string]*pendingCall
	runners map[string]*keyRunner
	wg      sync.WaitGroup
}

// NewDebouncer returns a Debouncer. A non-positive delay runs every call
// immediately.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]*pendingCall),
		runners: make(map[string]*keyRunner),
	}
}

// Do schedules fn for key, replacing anything already scheduled.
func (d *Debouncer) Do(key string, fn func()) {
	d.mu.Lock()
	d.seq++
	p := &pendingCall{key: key, seq: d.seq, fn: fn}

	if d.delay <= 0 {
		d.mu.Unlock()
		d.run(p)
		return
	}
	defer d.mu.Unlock()

	if old, ok := d.pending[key]; ok && !old.claimed {
		old.claimed = true
		old.timer.Stop()
		d.wg.Done()
	}

	d.wg.Add(1)
	p.timer = time.AfterFunc(d.delay, func() { d.fire(p) })
	d.pending[key] = p
}

func (d *Debouncer) fire(p *pendingCall) {
	d.mu.Lock()
	if p.claimed {
		d.mu.Unlock()
		return
	}
	p.claimed = true
	if d.pending[p.key] == p {
		delete(d.pending, p.key)
	}
	d.mu.Unlock()

	defer d.wg.Done()
	d.run(p)
}

// run calls p.fn while holding the runner of its key.
func (d *Debouncer) run(p *pendingCall) {
	d.mu.Lock()
	r, ok := d.runners[p.key]
	if !ok {
		r = &keyRunner{}
		d.runners[p.key] = r
	}
	d.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if p.seq <= r.lastRun {
		return
	}
	r.lastRun = p.seq
	p.fn()
}

// Pending reports how many keys have a call waiting.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush runs every waiting call now and waits for calls already firing.
// It must not race with Do.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	var calls []*pendingCall
	for key, p := range d.pending {
		delete(d.pending, key)
		if p.claimed {
			continue
		}
		p.claimed = true
		p.timer.Stop()
		calls = append(calls, p)
	}
	d.mu.Unlock()

	for _, p := range calls {
		d.run(p)
		d.wg.Done()
	}
	d.wg.Wait()
}
