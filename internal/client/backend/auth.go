package backend

import (
	"context"
	"slices"
	"sync"

	"github.com/dmitrijs2005/adullam/internal/client/models"
)

// AuthService is the contract of the hosted auth API.
//
// Contract:
//   - GetCurrentSession: the authoritative session, or nil when signed out.
//   - SignInWithPassword: fails with ErrInvalidCredentials, ErrNetwork or ErrRateLimited.
//   - SignUp: may return a nil session when email confirmation is required;
//     fails with ErrEmailInUse, ErrWeakPassword or ErrNetwork.
//   - SignOut: ends the session server-side; ErrNetwork is possible.
//   - Subscribe: delivers auth events in emission order until unsubscribed.
type AuthService interface {
	GetCurrentSession(ctx context.Context) (*models.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.SignUpResult, error)
	SignOut(ctx context.Context) error
	Subscribe(fn func(models.AuthEvent)) Subscription
}

// SessionRestorer is implemented by auth services that can be seeded with a
// previously persisted session, which GetCurrentSession then validates.
type SessionRestorer interface {
	RestoreSession(s *models.Session)
}

// Subscription is a handle to a registered auth event listener.
type Subscription interface {
	Unsubscribe()
}

// listeners is a registry of auth event callbacks.
type listeners struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(models.AuthEvent)
}

type listenerHandle struct {
	l    *listeners
	id   int
	once sync.Once
}

func (h *listenerHandle) Unsubscribe() {
	h.once.Do(func() {
		h.l.mu.Lock()
		delete(h.l.fns, h.id)
		h.l.mu.Unlock()
	})
}

func (l *listeners) add(fn func(models.AuthEvent)) Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(models.AuthEvent))
	}
	l.nextID++
	l.fns[l.nextID] = fn
	return &listenerHandle{l: l, id: l.nextID}
}

// emit calls every listener in registration order, outside the lock.
func (l *listeners) emit(ev models.AuthEvent) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(models.AuthEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (l *listeners) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}
