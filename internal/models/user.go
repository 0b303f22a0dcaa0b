package models

// Platform role names as assigned by the identity service.
const (
	RoleUser   = "ROLE_USER"
	RoleSeller = "ROLE_SELLER"
	RoleAdmin  = "ROLE_ADMIN"
)

// User is the subset of a user directory record the chat needs.
type User struct {
	ID        int64    `db:"user_id" json:"id"`
	Username  string   `db:"username" json:"username"`
	AvatarURL string   `db:"avatar_url" json:"avatarUrl,omitempty"`
	Roles     []string `db:"-" json:"roles"`
}

// HasRole reports whether the user carries the given role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Identity is what a credential verifier vouches for.
type Identity struct {
	UserID   int64
	Username string
}
