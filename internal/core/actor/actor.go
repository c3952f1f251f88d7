// Package actor identifies who caused a state change.
//
// Every lifecycle and ledger operation takes an Actor explicitly instead of
// reading it from the request context, so domain code stays deterministic.
package actor

import (
	"backoffice/internal/core/id"
)

// Actor is the user responsible for a change. The zero value is the system.
type Actor struct {
	UserID *id.ID
}

// System returns the actor used for automated changes.
func System() Actor {
	return Actor{}
}

// User returns an actor for the given user. A nil ID yields the system actor.
func User(userID id.ID) Actor {
	if id.IsNil(userID) {
		return Actor{}
	}
	uid := userID
	return Actor{UserID: &uid}
}

// FromString parses a user ID, falling back to the system actor when s is empty or malformed.
func FromString(s string) Actor {
	if s == "" {
		return Actor{}
	}
	uid, err := id.Parse(s)
	if err != nil {
		return Actor{}
	}
	return User(uid)
}

// IsSystem reports whether no user is attached.
func (a Actor) IsSystem() bool {
	return a.UserID == nil
}

func (a Actor) String() string {
	if a.UserID == nil {
		return "system"
	}
	return a.UserID.String()
}
