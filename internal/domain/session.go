package domain

// SessionState is the lifecycle state of the client session.
type SessionState string

const (
	SessionUninitialized SessionState = "UNINITIALIZED"
	SessionActive        SessionState = "ACTIVE"
	SessionInactive      SessionState = "INACTIVE"
)

// Credentials are the persisted session keys. They are always written and
// cleared together.
type Credentials struct {
	AccessToken  string `json:"access_token" db:"access_token"`
	RefreshToken string `json:"refresh_token" db:"refresh_token"`
	Role         Role   `json:"role,omitempty" db:"role"`
}

// IsZero reports whether no key is set.
func (c Credentials) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == "" && c.Role == ""
}

// TokenPair is the credential exchange response.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Session is a point-in-time view of the session slot.
type Session struct {
	State SessionState `json:"state"`
	User  *User        `json:"user,omitempty"`
}

// Active reports whether the session holds an identity.
func (s Session) Active() bool {
	return s.State == SessionActive && s.User != nil
}

// Role returns the session role, or RoleUnknown when inactive.
func (s Session) Role() Role {
	if !s.Active() {
		return RoleUnknown
	}
	return s.User.Role
}
