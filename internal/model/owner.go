package model

import "fmt"

// OwnerKind distinguishes authenticated users from guest sessions.
type OwnerKind string

const (
	OwnerKindUser  OwnerKind = "user"
	OwnerKindGuest OwnerKind = "guest"
)

// Owner identifies who a cart belongs to: an authenticated user or a
// guest session. Exactly one identity is carried; the zero value is
// invalid.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

// UserOwner returns an Owner for an authenticated user id.
func UserOwner(userID string) Owner {
	return Owner{Kind: OwnerKindUser, ID: userID}
}

// GuestOwner returns an Owner for a guest session id.
func GuestOwner(sessionID string) Owner {
	return Owner{Kind: OwnerKindGuest, ID: sessionID}
}

// IsUser reports whether the owner is an authenticated user.
func (o Owner) IsUser() bool {
	return o.Kind == OwnerKindUser
}

// Validate checks that the owner carries exactly one non-empty identity.
func (o Owner) Validate() error {
	if o.Kind != OwnerKindUser && o.Kind != OwnerKindGuest {
		return fmt.Errorf("invalid owner kind: %q", o.Kind)
	}
	if o.ID == "" {
		return fmt.Errorf("owner id is required")
	}
	return nil
}
