package session

import (
	"sync"

	"github.com/dmitrijs2005/adullam/internal/client/models"
)

// eventQueue buffers auth events so the auth service never blocks on the
// manager. Events are drained in arrival order by a single goroutine.
type eventQueue struct {
	mu    sync.Mutex
	items []models.AuthEvent
	// pending counts events pushed but not yet handled.
	pending int
	wake    chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{wake: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev models.AuthEvent) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.pending++
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() []models.AuthEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *eventQueue) handled() {
	q.mu.Lock()
	q.pending--
	q.mu.Unlock()
}

func (q *eventQueue) idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending == 0
}

func (m *Manager) run() {
	defer m.bg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.queue.wake:
			for _, ev := range m.queue.drain() {
				if m.ctx.Err() != nil {
					return
				}
				m.handleEvent(ev)
				m.queue.handled()
			}
		}
	}
}

// handleEvent applies an auth event reported by the backend. Profile
// resolution runs in the background under the stale-response guard.
func (m *Manager) handleEvent(ev models.AuthEvent) {
	ctx := m.ctx
	m.log.Debug(ctx, "auth event", "type", string(ev.Type), "user_id", ev.Session.UserID())

	switch ev.Type {
	case models.SignedOut:
		if m.Session() == nil {
			return
		}
		m.commit(ctx, nil, true)

	case models.SignedIn, models.TokenRefreshed:
		if ev.Session == nil {
			return
		}
		if models.SameToken(m.Session(), ev.Session) {
			return
		}
		gen, userChanged := m.commit(ctx, ev.Session, true)
		if userChanged || ev.Type == models.SignedIn {
			m.fetchProfileAsync(ev.Session.UserID(), gen)
		}
	}
}
