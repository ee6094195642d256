package common

// Keys of the local metadata table.
const (
	// SessionCacheKey holds the last known session (JSON, optionally sealed).
	SessionCacheKey = "auth.session"
	// CacheSaltKey holds the per-install salt for the cache sealing key.
	CacheSaltKey = "auth.session.salt"
)

// ProfilesTable is the backend table holding application profiles.
const ProfilesTable = "users"

// AvatarServiceURL generates placeholder avatars from a name.
const AvatarServiceURL = "https://ui-avatars.com/api/"

// GuestDisplayName is shown when no profile row is available.
const GuestDisplayName = "Guest"
