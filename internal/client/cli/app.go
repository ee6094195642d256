package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/adullam/internal/client/backend"
	"github.com/dmitrijs2005/adullam/internal/client/config"
	"github.com/dmitrijs2005/adullam/internal/client/models"
	"github.com/dmitrijs2005/adullam/internal/client/session"
	"github.com/dmitrijs2005/adullam/internal/logging"
)

// SessionManager is the part of session.Manager the CLI drives.
type SessionManager interface {
	Login(ctx context.Context, email, password string) error
	Signup(ctx context.Context, email, password, firstName, lastName string) error
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, patch models.ProfilePatch) error
	RefreshSession(ctx context.Context) error
	UploadAvatar(ctx context.Context, data []byte, ext, contentType string) (string, error)
	Watch(ctx context.Context, interval time.Duration)
	CurrentUser() *models.CurrentUser
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) *session.Subscription
}

var _ SessionManager = (*session.Manager)(nil)

type App struct {
	config  *config.Config
	manager SessionManager
	data    backend.DataService
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer

	mu        sync.Mutex
	lastState session.State
	lastUser  string
}

// NewApp builds the REPL front end. data may be nil, in which case the
// count command reports that the data service is unavailable.
func NewApp(c *config.Config, m SessionManager, data backend.DataService, l logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		config:  c,
		manager: m,
		data:    data,
		log:     l,
		reader:  bufio.NewReader(in),
		out:     out,
	}
}

// Run prints state changes, refreshes the session in the background and
// blocks in the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to Adullam CLI (type 'help' for commands)")

	a.rememberState(a.manager.Snapshot())
	sub := a.manager.Subscribe(a.onChange)
	defer sub.Unsubscribe()

	if a.config.SessionCheckInterval > 0 {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go a.manager.Watch(wctx, a.config.SessionCheckInterval)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.manager.CurrentUser() != nil
}

func (a *App) getStatus() string {
	snap := a.manager.Snapshot()
	if snap.User != nil {
		return fmt.Sprintf("(%s %s)", snap.User.Email, snap.State)
	}
	return fmt.Sprintf("(%s)", snap.State)
}

// rememberState records snap and reports whether the state or user changed.
func (a *App) rememberState(snap session.Snapshot) bool {
	user := ""
	if snap.User != nil {
		user = snap.User.ID
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if snap.State == a.lastState && user == a.lastUser {
		return false
	}
	a.lastState, a.lastUser = snap.State, user
	return true
}

func (a *App) onChange(snap session.Snapshot) {
	if !a.rememberState(snap) {
		return
	}
	switch {
	case snap.User != nil:
		printlnFn(fmt.Sprintf("[session] signed in as %s", snap.User.Email))
	case snap.State == session.Unauthenticated:
		printlnFn("[session] signed out")
	}
}
