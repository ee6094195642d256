package session

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/adullam/internal/client/backend"
	"github.com/dmitrijs2005/adullam/internal/client/models"
	"github.com/dmitrijs2005/adullam/internal/client/profiles"
	"github.com/dmitrijs2005/adullam/internal/common"
	"github.com/dmitrijs2005/adullam/internal/logging"
)

var ErrClosed = errors.New("session manager is closed")

// Store is the single-slot session cache.
type Store interface {
	Load(ctx context.Context) (*models.Session, error)
	// Save replaces the slot; nil clears it.
	Save(ctx context.Context, s *models.Session) error
}

type Deps struct {
	Auth     backend.AuthService
	Profiles profiles.Repository
	Cache    Store
	// Storage is optional; without it UploadAvatar fails.
	Storage backend.ObjectStorage
	Logger  logging.Logger
}

type Manager struct {
	auth     backend.AuthService
	profiles profiles.Repository
	cache    Store
	storage  backend.ObjectStorage
	log      logging.Logger

	// ctx scopes background work and is canceled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	booting    bool
	optimistic *models.Session
	confirmed  *models.Session
	profile    *models.Profile
	gen        uint64
	fetchSeq   uint64
	appliedSeq uint64
	loading    int
	started    bool
	closed     bool
	authSub    backend.Subscription

	// persistMu keeps cache writes in the order of memory transitions.
	persistMu sync.Mutex

	notifyMu  sync.Mutex
	observers observers

	queue *eventQueue
	bg    sync.WaitGroup
}

func NewManager(d Deps) *Manager {
	log := d.Logger
	if log == nil {
		log = logging.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		auth:     d.Auth,
		profiles: d.Profiles,
		cache:    d.Cache,
		storage:  d.Storage,
		log:      log.With("component", "session"),
		ctx:      ctx,
		cancel:   cancel,
		state:    Bootstrapping,
		queue:    newEventQueue(),
	}
}

// Start subscribes to auth events and runs the startup reconciliation. It
// returns once bootstrapping is over; reconciliation failures are logged and
// leave the manager Unauthenticated.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.booting = true
	m.authSub = m.auth.Subscribe(m.queue.push)
	m.bg.Add(1)
	m.mu.Unlock()

	go m.run()

	done := m.begin()
	defer done()

	cached := m.loadCache(ctx)
	if cached != nil {
		m.mu.Lock()
		m.optimistic = cached
		m.mu.Unlock()
		m.notify()

		if r, ok := m.auth.(backend.SessionRestorer); ok {
			r.RestoreSession(cached)
		}
	}

	live, err := m.auth.GetCurrentSession(ctx)
	if err != nil {
		m.log.Error(ctx, "session reconciliation failed, signing out locally", "error", err)
		m.commit(ctx, nil, true)
		m.finishBootstrap()
		return nil
	}

	res := Reconcile(cached, live)
	if res.Rewrite && cached != nil {
		m.log.Info(ctx, "cached session replaced by live session", "user_id", live.UserID())
	}
	gen, _ := m.commit(ctx, res.Session, res.Rewrite)
	if res.Session != nil {
		_ = m.fetchProfile(ctx, res.Session.UserID(), gen)
	}
	m.finishBootstrap()
	return nil
}

// Close unsubscribes from auth events and waits for background work.
// It is safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sub := m.authSub
	m.authSub = nil
	m.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	m.cancel()
	m.bg.Wait()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns the current session: the confirmed one, or the cached one
// while bootstrapping.
func (m *Manager) Session() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSession(m.current())
}

func (m *Manager) Profile() *models.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneProfile(m.profile)
}

func (m *Manager) CurrentUser() *models.CurrentUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return BuildCurrentUser(m.current(), m.profile)
}

// Loading reports whether bootstrapping or any explicit operation is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadingLocked()
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	s := m.current()
	return Snapshot{
		State:   m.state,
		Session: cloneSession(s),
		Profile: cloneProfile(m.profile),
		User:    BuildCurrentUser(s, m.profile),
		Loading: m.loadingLocked(),
	}
}

func (m *Manager) loadingLocked() bool {
	return m.loading > 0 || m.state == Bootstrapping
}

// current must be called with mu held.
func (m *Manager) current() *models.Session {
	if m.confirmed == nil && m.booting {
		return m.optimistic
	}
	return m.confirmed
}

func (m *Manager) confirmedUserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmed.UserID()
}

func (m *Manager) begin() func() {
	m.mu.Lock()
	m.loading++
	m.mu.Unlock()
	m.notify()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.loading--
			m.mu.Unlock()
			m.notify()
		})
	}
}

func (m *Manager) finishBootstrap() {
	m.mu.Lock()
	m.booting = false
	m.optimistic = nil
	if m.confirmed != nil {
		m.state = Authenticated
	} else {
		m.state = Unauthenticated
	}
	m.mu.Unlock()
	m.notify()
}

// commit makes s the confirmed session and, when persist is set, mirrors it
// to the cache before observers hear about it. A change of the bound user
// drops the profile and starts a new generation; the returned generation is
// the one profile fetches for s must carry.
func (m *Manager) commit(ctx context.Context, s *models.Session, persist bool) (uint64, bool) {
	m.persistMu.Lock()

	m.mu.Lock()
	prevUser := m.current().UserID()
	m.confirmed = cloneSession(s)
	userChanged := s == nil || prevUser != s.UserID()
	if userChanged {
		m.gen++
		m.profile = nil
	}
	if !m.booting {
		if s != nil {
			m.state = Authenticated
		} else {
			m.state = Unauthenticated
		}
	}
	gen := m.gen
	m.mu.Unlock()

	if persist {
		m.persist(ctx, s)
	}
	m.persistMu.Unlock()

	m.notify()
	return gen, userChanged
}

func (m *Manager) persist(ctx context.Context, s *models.Session) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Save(context.WithoutCancel(ctx), s); err != nil {
		m.log.Warn(ctx, "session cache write failed", "error", err)
	}
}

// loadCache reads the cached session. Failures count as a miss; a corrupted
// slot is cleared.
func (m *Manager) loadCache(ctx context.Context) *models.Session {
	if m.cache == nil {
		return nil
	}
	s, err := m.cache.Load(ctx)
	if err == nil {
		return s
	}

	m.log.Warn(ctx, "session cache unreadable, ignoring", "error", err)
	if errors.Is(err, common.ErrCacheCorrupted) {
		if err := m.cache.Save(ctx, nil); err != nil {
			m.log.Warn(ctx, "session cache clear failed", "error", err)
		}
	}
	return nil
}

// fetchProfile loads the profile of userID and applies it unless the binding
// moved on meanwhile. A failed fetch leaves the profile nil.
func (m *Manager) fetchProfile(ctx context.Context, userID string, gen uint64) error {
	m.mu.Lock()
	m.fetchSeq++
	seq := m.fetchSeq
	m.mu.Unlock()

	p, err := m.profiles.Get(ctx, userID)

	m.mu.Lock()
	if gen != m.gen || m.current().UserID() != userID || seq < m.appliedSeq {
		m.mu.Unlock()
		m.log.Debug(ctx, "discarding stale profile response", "user_id", userID)
		return nil
	}
	m.appliedSeq = seq
	if err != nil {
		m.profile = nil
	} else {
		m.profile = cloneProfile(p)
	}
	m.mu.Unlock()
	m.notify()

	switch {
	case err != nil:
		m.log.Warn(ctx, "profile fetch failed", "user_id", userID, "error", err)
	case p == nil:
		m.log.Warn(ctx, "signed-in user has no profile row", "user_id", userID)
	}
	return err
}

// fetchProfileAsync runs fetchProfile on the manager's background context.
func (m *Manager) fetchProfileAsync(userID string, gen uint64) {
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		_ = m.fetchProfile(m.ctx, userID, gen)
	}()
}
