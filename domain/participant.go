// Package domain contains core concepts of the messaging system.
// This file defines Participant profiles. Authentication lives elsewhere;
// participant identifiers are opaque here.
package domain

import "time"

// Profile is the public directory entry of a participant.
type Profile struct {
	ID          string
	Username    string
	AvatarColor string
	CreatedAt   time.Time
}
