package models

import "time"

// Winner records that a participant won a round. Rows are only ever inserted
// by a draw and removed by a redraw of the whole round.
type Winner struct {
	ID            int64     `bson:"_id" json:"id"`
	RoundID       int64     `bson:"roundId" json:"roundId"`
	ActivityID    int64     `bson:"activityId" json:"activityId"`
	ParticipantID int64     `bson:"participantId" json:"participantId"`
	DrawnAt       time.Time `bson:"drawnAt" json:"drawnAt"`
}

// WinnerDetail joins a winner row with its participant and round. Participant
// is nil when the roster entry was deleted after the draw.
type WinnerDetail struct {
	Winner      Winner       `json:"winner"`
	Participant *Participant `json:"participant"`
	Round       Round        `json:"round"`
}

// DrawResult is returned by a successful draw.
type DrawResult struct {
	Round   Round          `json:"round"`
	Winners []WinnerDetail `json:"winners"`
	DrawnAt time.Time      `json:"drawnAt"`
}
