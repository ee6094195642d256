package session

import (
	"net/url"
	"strings"

	"github.com/dmitrijs2005/adullam/internal/client/models"
	"github.com/dmitrijs2005/adullam/internal/common"
)

type State int

const (
	Bootstrapping State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of the manager's observable fields.
type Snapshot struct {
	State   State
	Session *models.Session
	Profile *models.Profile
	User    *models.CurrentUser
	Loading bool
}

// Resolution is the outcome of merging the cached and the live session.
type Resolution struct {
	Session *models.Session
	// Rewrite is set when the cache no longer matches Session.
	Rewrite bool
}

// Reconcile merges the optimistic cached session with the authoritative
// live one. The live session always wins; the cache is kept only when it
// carries the same access token.
func Reconcile(cached, live *models.Session) Resolution {
	if models.SameToken(cached, live) {
		return Resolution{Session: live}
	}
	return Resolution{Session: live, Rewrite: true}
}

// BuildCurrentUser derives the display view of s and p. It returns nil
// without a session; a nil profile yields the guest defaults.
func BuildCurrentUser(s *models.Session, p *models.Profile) *models.CurrentUser {
	if s == nil {
		return nil
	}

	u := &models.CurrentUser{
		ID:          s.User.ID,
		Email:       s.User.Email,
		DisplayName: common.GuestDisplayName,
		PhotoURL:    PlaceholderAvatarURL(s.User.Email),
	}
	if p == nil {
		return u
	}

	u.HasProfile = true
	u.IsAdmin = p.IsAdmin
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		u.DisplayName = name
	}
	if p.AvatarURL != "" {
		u.PhotoURL = p.AvatarURL
	}
	return u
}

// PlaceholderAvatarURL is the generated avatar shown when a user has none.
func PlaceholderAvatarURL(email string) string {
	return common.AvatarServiceURL + "?name=" + url.QueryEscape(email)
}

// SignupAvatarURL is the default avatar stored with a new profile.
func SignupAvatarURL(firstName, lastName string) string {
	return common.AvatarServiceURL + "?name=" + url.QueryEscape(firstName) + "+" + url.QueryEscape(lastName)
}

func cloneSession(s *models.Session) *models.Session {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}

func cloneProfile(p *models.Profile) *models.Profile {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}
