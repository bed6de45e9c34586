package models

import "time"

// Activity is one lottery event. It owns an ordered list of rounds and a roster.
type Activity struct {
	ID            int64     `bson:"_id" json:"id"`
	Name          string    `bson:"name" json:"name"`
	Description   string    `bson:"description,omitempty" json:"description,omitempty"`
	AllowMultiWin bool      `bson:"allowMultiWin" json:"allowMultiWin"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ActivityDetail is an activity together with its rounds (ordered by OrderIndex)
// and roster statistics.
type ActivityDetail struct {
	Activity         Activity `json:"activity"`
	Rounds           []Round  `json:"rounds"`
	ParticipantCount int      `json:"participantCount"`
	TotalWinnerSlots int      `json:"totalWinnerSlots"`
	// CapacityWarning is set when the rounds ask for more distinct winners than
	// the roster holds. Informational only; drawing is never blocked by it.
	CapacityWarning bool `json:"capacityWarning"`
}

// ActivityInput carries the editable fields of an activity.
type ActivityInput struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	AllowMultiWin bool   `json:"allowMultiWin"`
}
