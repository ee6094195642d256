package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/adullam/internal/client/models"
	"github.com/dmitrijs2005/adullam/internal/client/session"
	"github.com/dmitrijs2005/adullam/internal/common"
	"github.com/dmitrijs2005/adullam/internal/filex"
)

const maxAvatarBytes = 5 << 20

// readImage is a test seam for filex.ReadImage.
var readImage = filex.ReadImage

// WhoAmI prints the derived current-user view.
func (a *App) WhoAmI(ctx context.Context) error {
	u := a.manager.CurrentUser()
	if u == nil {
		printlnFn("Not logged in")
		return nil
	}

	printlnFn("ID:     ", u.ID)
	printlnFn("Email:  ", u.Email)
	printlnFn("Name:   ", u.DisplayName)
	printlnFn("Photo:  ", u.PhotoURL)
	printlnFn("Admin:  ", u.IsAdmin)
	if !u.HasProfile {
		printlnFn("(no profile on record)")
	}
	return nil
}

// EditProfile prompts for new names; empty answers keep the current value.
func (a *App) EditProfile(ctx context.Context) error {
	snap := a.manager.Snapshot()
	if snap.User == nil {
		printlnFn("Please log in first")
		return common.ErrNotAuthenticated
	}

	var cur models.Profile
	if snap.Profile != nil {
		cur = *snap.Profile
	}

	first, err := getOptionalText(a.reader, "First name", cur.FirstName, a.out)
	if err != nil {
		return err
	}
	last, err := getOptionalText(a.reader, "Last name", cur.LastName, a.out)
	if err != nil {
		return err
	}

	patch := models.ProfilePatch{FirstName: first, LastName: last}
	if patch.Empty() {
		printlnFn("Nothing to change")
		return nil
	}

	if err := a.manager.UpdateProfile(ctx, patch); err != nil {
		printlnFn("Profile update failed:", describe(err))
		return err
	}
	printlnFn("Profile updated")
	return nil
}

// Avatar uploads the image at path and makes it the user's photo.
func (a *App) Avatar(ctx context.Context, path string) error {
	img, err := readImage(path, maxAvatarBytes)
	if err != nil {
		printlnFn("Cannot use this file:", err)
		return err
	}

	url, err := a.manager.UploadAvatar(ctx, img.Data, img.Ext, img.ContentType)
	if err != nil {
		if errors.Is(err, session.ErrNoStorage) {
			printlnFn("Avatar uploads are not configured")
		} else {
			printlnFn("Avatar upload failed:", describe(err))
		}
		return err
	}
	printlnFn("Avatar updated:", url)
	return nil
}

// Refresh re-reads the session and profile from the backend.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.manager.RefreshSession(ctx); err != nil {
		printlnFn("Refresh failed:", describe(err))
		return err
	}
	printlnFn(fmt.Sprintf("Session refreshed %s", a.getStatus()))
	return nil
}
