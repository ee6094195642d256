package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/adullam/internal/client/backend"
	"github.com/dmitrijs2005/adullam/internal/client/models"
	"github.com/dmitrijs2005/adullam/internal/common"
)

var ErrNoStorage = errors.New("object storage is not configured")

// Login signs in with a password and persists the new session. On failure
// the state is left untouched and the backend error is returned.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	done := m.begin()
	defer done()

	s, err := m.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		m.log.Info(ctx, "login failed", "email", email, "error", err)
		return err
	}

	gen, _ := m.commit(ctx, s, true)
	m.log.Info(ctx, "logged in", "user_id", s.UserID())
	_ = m.fetchProfile(ctx, s.UserID(), gen)
	return nil
}

// Signup creates the identity and then, separately, its profile row. A
// failed profile insert is returned but the identity is kept; a session is
// installed only when the backend issued one.
func (m *Manager) Signup(ctx context.Context, email, password, firstName, lastName string) error {
	done := m.begin()
	defer done()

	res, err := m.auth.SignUp(ctx, email, password, map[string]any{
		"first_name": firstName,
		"last_name":  lastName,
	})
	if err != nil {
		m.log.Info(ctx, "sign-up failed", "email", email, "error", err)
		return err
	}

	userID := res.Identity.ID
	insertErr := m.profiles.Create(ctx, models.Profile{
		ID:        userID,
		FirstName: firstName,
		LastName:  lastName,
		AvatarURL: SignupAvatarURL(firstName, lastName),
	})
	if insertErr != nil {
		m.log.Error(ctx, "profile insert failed after sign-up", "user_id", userID, "error", insertErr)
	}

	if res.Session == nil {
		m.log.Info(ctx, "sign-up pending confirmation", "user_id", userID)
		return insertErr
	}

	gen, _ := m.commit(ctx, res.Session, true)
	if insertErr == nil {
		_ = m.fetchProfile(ctx, userID, gen)
	}
	return insertErr
}

// Logout ends the session. Memory and cache are cleared even when the
// backend sign-out fails; that error is still returned.
func (m *Manager) Logout(ctx context.Context) error {
	done := m.begin()
	defer done()

	err := m.auth.SignOut(ctx)
	if err != nil {
		m.log.Warn(ctx, "backend sign-out failed, clearing local session anyway", "error", err)
	}
	m.commit(ctx, nil, true)
	return err
}

// UpdateProfile writes patch to the profile row and re-reads the row.
func (m *Manager) UpdateProfile(ctx context.Context, patch models.ProfilePatch) error {
	userID := m.confirmedUserID()
	if userID == "" {
		return common.ErrNotAuthenticated
	}

	done := m.begin()
	defer done()

	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	if err := m.profiles.Update(ctx, userID, patch); err != nil {
		return err
	}
	return m.fetchProfile(ctx, userID, gen)
}

// RefreshSession re-reads the authoritative session and the profile. An auth
// service error signs the user out locally and is returned.
func (m *Manager) RefreshSession(ctx context.Context) error {
	return m.refresh(ctx, false)
}

// refresh re-reads the live session. With keepOnNetwork set, a network
// failure leaves the current session in place.
func (m *Manager) refresh(ctx context.Context, keepOnNetwork bool) error {
	done := m.begin()
	defer done()

	live, err := m.auth.GetCurrentSession(ctx)
	if err != nil {
		if keepOnNetwork && errors.Is(err, common.ErrNetwork) {
			return err
		}
		m.log.Error(ctx, "session refresh failed, signing out locally", "error", err)
		m.commit(ctx, nil, true)
		return err
	}

	gen, _ := m.commit(ctx, live, true)
	if live != nil {
		_ = m.fetchProfile(ctx, live.UserID(), gen)
	}
	return nil
}

// UploadAvatar stores data as the user's new avatar and points the profile
// at its public URL, which is returned.
func (m *Manager) UploadAvatar(ctx context.Context, data []byte, ext, contentType string) (string, error) {
	userID := m.confirmedUserID()
	if userID == "" {
		return "", common.ErrNotAuthenticated
	}
	if m.storage == nil {
		return "", ErrNoStorage
	}

	done := m.begin()
	defer done()

	url, err := m.storage.Upload(ctx, backend.AvatarKey(userID, ext), data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	if err := m.UpdateProfile(ctx, models.ProfilePatch{AvatarURL: &url}); err != nil {
		return url, err
	}
	return url, nil
}
