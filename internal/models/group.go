package models

// Group is a named collection of users who share expenses.
// Deleting a group removes its membership rows and its debts; expenses
// that referenced the group keep existing with no group attached.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the unique display name of the group.
	Name string

	// MemberIDs are the user IDs of the group's members.
	MemberIDs []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether the user is already in the group.
func (g *Group) HasMember(userID string) bool {
	for _, id := range g.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
