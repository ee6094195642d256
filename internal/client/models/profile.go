package models

// Profile is the application-level row keyed by the identity id.
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url"`
	IsAdmin   bool   `json:"is_admin"`
}

// ProfilePatch is a partial profile update; nil fields are left untouched.
type ProfilePatch struct {
	FirstName *string
	LastName  *string
	AvatarURL *string
	IsAdmin   *bool
}

// Columns returns the non-nil fields keyed by column name.
func (p ProfilePatch) Columns() map[string]any {
	cols := make(map[string]any, 4)
	if p.FirstName != nil {
		cols["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		cols["last_name"] = *p.LastName
	}
	if p.AvatarURL != nil {
		cols["avatar_url"] = *p.AvatarURL
	}
	if p.IsAdmin != nil {
		cols["is_admin"] = *p.IsAdmin
	}
	return cols
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return len(p.Columns()) == 0
}

// CurrentUser is the derived, never-persisted view of identity + profile.
type CurrentUser struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
	IsAdmin     bool
	// HasProfile is false when the view was built from the identity alone.
	HasProfile bool
}
