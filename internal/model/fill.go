package model

import "time"

// PlannedBottle is one cylinder included in a fill plan, with the grams
// its fill will draw from the tank.
type PlannedBottle struct {
	BottleID int64  `json:"bottle_id"`
	Serial   string `json:"serial"`
	WeightG  int64  `json:"weight_g"`
}

// SkippedBottle is a requested id the planner excluded, with the reason.
type SkippedBottle struct {
	BottleID int64  `json:"bottle_id"`
	Reason   string `json:"reason"`
}

// FillPlan is the feasibility result for a requested bottle set. Bottles
// are ordered smallest capacity first, then by serial, so committing a
// capacity-bounded plan fills the maximum count before the tank runs dry.
type FillPlan struct {
	ID        string          `json:"id"`
	Bottles   []PlannedBottle `json:"bottles"`
	Skipped   []SkippedBottle `json:"skipped"`
	TotalG    int64           `json:"total_g"`
	Applied   bool            `json:"applied"`
	CreatedAt time.Time       `json:"created_at"`
}

// FillResult reports what a commit actually did. Dropped bottles were in
// the plan but lost a race to a concurrent writer; their reserved grams
// went back to the tank.
type FillResult struct {
	PlanID     string          `json:"plan_id"`
	Filled     []int64         `json:"filled"`
	Dropped    []SkippedBottle `json:"dropped"`
	Skipped    []SkippedBottle `json:"skipped"`
	TotalG     int64           `json:"total_g"`
	TankLevelG int64           `json:"tank_level_g"`
}
