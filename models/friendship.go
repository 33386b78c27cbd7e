package models

import "slices"

// RelationshipStatus is a relationship seen from one side of a pair.
type RelationshipStatus string

const (
	StatusSelf            RelationshipStatus = "SELF"
	StatusFriends         RelationshipStatus = "FRIENDS"
	StatusPendingOutgoing RelationshipStatus = "PENDING_OUTGOING"
	StatusPendingIncoming RelationshipStatus = "PENDING_INCOMING"
	StatusNotFriends      RelationshipStatus = "NOT_FRIENDS"
)

// Reverse swaps the point of view: outgoing on one side is incoming on the
// other.
func (s RelationshipStatus) Reverse() RelationshipStatus {
	switch s {
	case StatusPendingOutgoing:
		return StatusPendingIncoming
	case StatusPendingIncoming:
		return StatusPendingOutgoing
	default:
		return s
	}
}

// RelationshipTo reports how u relates to other, read from u's own sets.
func (u *User) RelationshipTo(other string) RelationshipStatus {
	switch {
	case u.ID == other:
		return StatusSelf
	case slices.Contains(u.Friends, other):
		return StatusFriends
	case slices.Contains(u.OutgoingFriendRequests, other):
		return StatusPendingOutgoing
	case slices.Contains(u.IncomingFriendRequests, other):
		return StatusPendingIncoming
	default:
		return StatusNotFriends
	}
}

// Connected lists every user u is friends with or has a pending request with.
func (u *User) Connected() []string {
	out := make([]string, 0, len(u.Friends)+len(u.OutgoingFriendRequests)+len(u.IncomingFriendRequests))
	out = append(out, u.Friends...)
	out = append(out, u.OutgoingFriendRequests...)
	out = append(out, u.IncomingFriendRequests...)
	return out
}
