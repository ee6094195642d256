package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/adullam/internal/client/backend"
	"github.com/dmitrijs2005/adullam/internal/client/models"
)

// fakeAuth mimics the hosted auth API: it keeps the current session and
// emits events for the changes it makes.
type fakeAuth struct {
	mu sync.Mutex

	current    *models.Session
	currentErr error
	// currentGate, when set, blocks GetCurrentSession until closed.
	currentGate chan struct{}

	sessions  map[string]*models.Session
	signInErr error
	// signInGates block SignInWithPassword per email until closed.
	signInGates map[string]chan struct{}

	signUpRes  *models.SignUpResult
	signUpErr  error
	signOutErr error

	listeners map[int]func(models.AuthEvent)
	nextID    int

	Subscribes   int
	SignOuts     int
	Restored     *models.Session
	LastMetadata map[string]any
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		sessions:    map[string]*models.Session{},
		signInGates: map[string]chan struct{}{},
		listeners:   map[int]func(models.AuthEvent){},
	}
}

type fakeSub struct {
	a    *fakeAuth
	id   int
	once sync.Once
}

func (s *fakeSub) Unsubscribe() {
	s.once.Do(func() {
		s.a.mu.Lock()
		delete(s.a.listeners, s.id)
		s.a.mu.Unlock()
	})
}

func (a *fakeAuth) Subscribe(fn func(models.AuthEvent)) backend.Subscription {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Subscribes++
	a.nextID++
	a.listeners[a.nextID] = fn
	return &fakeSub{a: a, id: a.nextID}
}

func (a *fakeAuth) listenerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.listeners)
}

func (a *fakeAuth) emit(ev models.AuthEvent) {
	a.mu.Lock()
	fns := make([]func(models.AuthEvent), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (a *fakeAuth) setCurrent(s *models.Session, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current, a.currentErr = s, err
}

func (a *fakeAuth) GetCurrentSession(ctx context.Context) (*models.Session, error) {
	a.mu.Lock()
	gate := a.currentGate
	a.mu.Unlock()
	if gate != nil {
		<-gate
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneSession(a.current), a.currentErr
}

func (a *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	a.mu.Lock()
	gate := a.signInGates[email]
	a.mu.Unlock()
	if gate != nil {
		<-gate
	}

	a.mu.Lock()
	if a.signInErr != nil {
		err := a.signInErr
		a.mu.Unlock()
		return nil, err
	}
	s := cloneSession(a.sessions[email])
	a.current = s
	a.mu.Unlock()

	a.emit(models.AuthEvent{Type: models.SignedIn, Session: cloneSession(s)})
	return s, nil
}

func (a *fakeAuth) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.SignUpResult, error) {
	a.mu.Lock()
	a.LastMetadata = metadata
	res, err := a.signUpRes, a.signUpErr
	if err == nil && res.Session != nil {
		a.current = cloneSession(res.Session)
	}
	a.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if res.Session != nil {
		a.emit(models.AuthEvent{Type: models.SignedIn, Session: cloneSession(res.Session)})
	}
	return res, nil
}

func (a *fakeAuth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	a.SignOuts++
	a.current = nil
	err := a.signOutErr
	a.mu.Unlock()

	a.emit(models.AuthEvent{Type: models.SignedOut})
	return err
}

func (a *fakeAuth) RestoreSession(s *models.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Restored = cloneSession(s)
}

type fakeProfiles struct {
	mu sync.Mutex

	rows      map[string]*models.Profile
	getErr    error
	createErr error
	updateErr error
	// applyUpdates controls whether Update changes the stored row.
	applyUpdates bool
	gates        map[string]chan struct{}

	GetCalls    int
	Completed   []string
	LastCreated *models.Profile
	LastPatch   *models.ProfilePatch
}

func newFakeProfiles(rows ...models.Profile) *fakeProfiles {
	f := &fakeProfiles{rows: map[string]*models.Profile{}, gates: map[string]chan struct{}{}, applyUpdates: true}
	for _, p := range rows {
		f.rows[p.ID] = cloneProfile(&p)
	}
	return f
}

func (f *fakeProfiles) Get(ctx context.Context, userID string) (*models.Profile, error) {
	f.mu.Lock()
	f.GetCalls++
	gate := f.gates[userID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Completed = append(f.Completed, userID)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return cloneProfile(f.rows[userID]), nil
}

func (f *fakeProfiles) Create(ctx context.Context, p models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastCreated = &p
	if f.createErr != nil {
		return f.createErr
	}
	f.rows[p.ID] = cloneProfile(&p)
	return nil
}

func (f *fakeProfiles) Update(ctx context.Context, userID string, patch models.ProfilePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastPatch = &patch
	if f.updateErr != nil {
		return f.updateErr
	}
	row := f.rows[userID]
	if row == nil || !f.applyUpdates {
		return nil
	}
	if patch.FirstName != nil {
		row.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		row.LastName = *patch.LastName
	}
	if patch.AvatarURL != nil {
		row.AvatarURL = *patch.AvatarURL
	}
	if patch.IsAdmin != nil {
		row.IsAdmin = *patch.IsAdmin
	}
	return nil
}

func (f *fakeProfiles) setRow(p models.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[p.ID] = cloneProfile(&p)
}

func (f *fakeProfiles) gate(userID string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[userID] = ch
	return ch
}

func (f *fakeProfiles) getCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.GetCalls
}

func (f *fakeProfiles) completed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Completed...)
}

type memStore struct {
	mu      sync.Mutex
	s       *models.Session
	loadErr error
	saveErr error
	Saves   int
}

func (m *memStore) Load(ctx context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return cloneSession(m.s), nil
}

func (m *memStore) Save(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.s = cloneSession(s)
	return nil
}

func (m *memStore) token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == nil {
		return ""
	}
	return m.s.AccessToken
}

func (m *memStore) saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Saves
}

type fakeStorage struct {
	backend.ObjectStorage

	err         error
	LastKey     string
	LastType    string
	LastPayload []byte
}

func (f *fakeStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.LastKey, f.LastType, f.LastPayload = key, contentType, data
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.test/" + key, nil
}
