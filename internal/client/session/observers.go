package session

import (
	"slices"
	"sync"
)

type observers struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(Snapshot)

	// snapshots waiting for delivery, oldest first
	pending []Snapshot
	busy    bool
}

// Subscription is the handle returned by Manager.Subscribe.
type Subscription struct {
	obs  *observers
	id   int
	once sync.Once
}

// Unsubscribe stops delivery; a delivery already under way still completes.
// Calling it again has no effect.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.obs == nil {
		return
	}
	s.once.Do(func() {
		s.obs.mu.Lock()
		delete(s.obs.fns, s.id)
		s.obs.mu.Unlock()
	})
}

// Subscribe registers fn to receive a snapshot after every state change.
func (m *Manager) Subscribe(fn func(Snapshot)) *Subscription {
	o := &m.observers
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[int]func(Snapshot))
	}
	o.nextID++
	o.fns[o.nextID] = fn
	return &Subscription{obs: o, id: o.nextID}
}

func (o *observers) list() []func(Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]int, 0, len(o.fns))
	for id := range o.fns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		out = append(out, o.fns[id])
	}
	return out
}

// notify queues the current snapshot for every observer. Snapshots are
// delivered in order by a single dispatcher goroutine that holds no manager
// lock, so observers may call back into the manager.
func (m *Manager) notify() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	o := &m.observers
	o.mu.Lock()
	if len(o.fns) == 0 {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	snap := m.Snapshot()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, snap)
	if !o.busy {
		o.busy = true
		go o.dispatch()
	}
}

func (o *observers) dispatch() {
	for {
		o.mu.Lock()
		if len(o.pending) == 0 {
			o.busy = false
			o.mu.Unlock()
			return
		}
		snap := o.pending[0]
		o.pending = o.pending[1:]
		o.mu.Unlock()

		for _, fn := range o.list() {
			fn(snap)
		}
	}
}

// idle reports whether every queued snapshot has been delivered.
func (o *observers) idle() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.busy && len(o.pending) == 0
}
