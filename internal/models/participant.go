package models

import "time"

// Participant is a roster member of one activity.
type Participant struct {
	ID         int64     `bson:"_id" json:"id"`
	ActivityID int64     `bson:"activityId" json:"activityId"`
	Name       string    `bson:"name" json:"name"`
	EmployeeID string    `bson:"employeeId,omitempty" json:"employeeId,omitempty"`
	Department string    `bson:"department,omitempty" json:"department,omitempty"`
	Email      string    `bson:"email,omitempty" json:"email,omitempty"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ParticipantInput carries the editable fields of a participant.
type ParticipantInput struct {
	Name       string `json:"name"`
	EmployeeID string `json:"employeeId"`
	Department string `json:"department"`
	Email      string `json:"email"`
}

// ImportResult summarises a roster CSV import.
type ImportResult struct {
	Created   int        `json:"created"`
	TotalRows int        `json:"totalRows"`
	Errors    []RowIssue `json:"errors"`
}

// RowIssue is a rejected import row. Row counts data rows from 1.
type RowIssue struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}
