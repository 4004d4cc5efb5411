package domain

import "time"

type UserID string

// User is the identity record kept by the store for a user id.
type User struct {
	ID          UserID    `json:"id" yaml:"id"`
	DisplayName string    `json:"displayName" yaml:"displayName"`
	Disabled    bool      `json:"disabled" yaml:"disabled"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
}

// VerifiedIdentity is what an identity provider vouches for after checking
// a bearer token. RoleClaim is empty when the token carries no role.
type VerifiedIdentity struct {
	UID       UserID
	RoleClaim string
}

// Viewer is the identity an authorization decision is made for.
type Viewer struct {
	UserID        UserID
	Role          Role
	Authenticated bool
}

// AnonymousViewer is the identity of public requests.
func AnonymousViewer() Viewer {
	return Viewer{Role: RoleNonUser}
}

// ViewerFromIdentity derives the viewer role from a verified role claim,
// falling back to nonUser when the claim is absent or unknown.
func ViewerFromIdentity(id VerifiedIdentity) Viewer {
	role, err := ParseRole(id.RoleClaim)
	if err != nil {
		role = RoleNonUser
	}
	return Viewer{UserID: id.UID, Role: role, Authenticated: true}
}

// AuthorizationRequest carries one delivery authorization attempt. When
// PublicAccess is set, UserID and IDToken are ignored.
type AuthorizationRequest struct {
	Kind         ContentKind
	ContentID    ContentID
	UserID       UserID
	IDToken      string
	PublicAccess bool
}
