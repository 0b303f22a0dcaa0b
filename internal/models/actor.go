package models

// ParticipantRole classifies an actor once for all role-dependent branching.
type ParticipantRole int

const (
	// RoleClassUser holds the user role without the seller role, or no chat role at all.
	RoleClassUser ParticipantRole = iota
	// RoleClassSeller holds the seller role only.
	RoleClassSeller
	// RoleClassBoth holds both the user and the seller role.
	RoleClassBoth
)

func (r ParticipantRole) String() string {
	switch r {
	case RoleClassSeller:
		return "seller"
	case RoleClassBoth:
		return "both"
	default:
		return "user"
	}
}

// ClassifyRoles maps a role set to its ParticipantRole.
func ClassifyRoles(roles []string) ParticipantRole {
	var user, seller bool
	for _, r := range roles {
		switch r {
		case RoleUser:
			user = true
		case RoleSeller:
			seller = true
		}
	}
	switch {
	case seller && user:
		return RoleClassBoth
	case seller:
		return RoleClassSeller
	default:
		return RoleClassUser
	}
}

// ChatActor is the authenticated caller of a REST request or a websocket session.
type ChatActor struct {
	UserID   int64           `json:"userId"`
	Username string          `json:"username"`
	Roles    []string        `json:"roles"`
	Role     ParticipantRole `json:"-"`
}

// NewChatActor builds an actor and resolves its role classification.
func NewChatActor(user User) ChatActor {
	roles := append([]string(nil), user.Roles...)
	return ChatActor{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    roles,
		Role:     ClassifyRoles(roles),
	}
}

// IsSellerOnly reports whether the actor acts exclusively on the seller side.
func (a ChatActor) IsSellerOnly() bool {
	return a.Role == RoleClassSeller
}

// CanSell reports whether the actor may act as a seller.
func (a ChatActor) CanSell() bool {
	return a.Role == RoleClassSeller || a.Role == RoleClassBoth
}
