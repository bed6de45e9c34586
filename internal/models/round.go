package models

import "time"

// LotteryMode selects the reveal animation. It has no effect on the draw itself.
type LotteryMode string

const (
	LotteryModeWheel       LotteryMode = "wheel"
	LotteryModeDoubleBall  LotteryMode = "double_ball"
	LotteryModeSlotMachine LotteryMode = "slot_machine"
	LotteryModeHorseRace   LotteryMode = "horse_race"
	LotteryModeScratch     LotteryMode = "scratch"
	LotteryModeZuma        LotteryMode = "zuma"
)

// Valid reports whether m is one of the known modes.
func (m LotteryMode) Valid() bool {
	switch m {
	case LotteryModeWheel, LotteryModeDoubleBall, LotteryModeSlotMachine,
		LotteryModeHorseRace, LotteryModeScratch, LotteryModeZuma:
		return true
	}
	return false
}

// Round is one prize draw within an activity.
type Round struct {
	ID                  int64       `bson:"_id" json:"id"`
	ActivityID          int64       `bson:"activityId" json:"activityId"`
	OrderIndex          int         `bson:"orderIndex" json:"orderIndex"`
	PrizeName           string      `bson:"prizeName" json:"prizeName"`
	WinnerCount         int         `bson:"winnerCount" json:"winnerCount"`
	LotteryMode         LotteryMode `bson:"lotteryMode" json:"lotteryMode"`
	AnimationDurationMs int         `bson:"animationDurationMs" json:"animationDurationMs"`
	IsDrawn             bool        `bson:"isDrawn" json:"isDrawn"`
	DrawnAt             *time.Time  `bson:"drawnAt,omitempty" json:"drawnAt,omitempty"`
	CreatedAt           time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// AnimationDuration returns the configured reveal duration.
func (r Round) AnimationDuration() time.Duration {
	return time.Duration(r.AnimationDurationMs) * time.Millisecond
}

// RoundInput is the configureRound payload. Pointer fields are optional.
type RoundInput struct {
	OrderIndex          *int        `json:"orderIndex"`
	PrizeName           string      `json:"prizeName"`
	WinnerCount         int         `json:"winnerCount"`
	LotteryMode         LotteryMode `json:"lotteryMode"`
	AnimationDurationMs int         `json:"animationDurationMs"`
}

// RoundUpdate is the updateRound payload. Nil fields keep their current value.
type RoundUpdate struct {
	OrderIndex          *int         `json:"orderIndex"`
	PrizeName           *string      `json:"prizeName"`
	WinnerCount         *int         `json:"winnerCount"`
	LotteryMode         *LotteryMode `json:"lotteryMode"`
	AnimationDurationMs *int         `json:"animationDurationMs"`
}

// RoundOrder is the reorderRounds payload: roundIds[i] gets orderIndex i.
type RoundOrder struct {
	RoundIDs []int64 `json:"roundIds" binding:"required"`
}
