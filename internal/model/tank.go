package model

import "time"

// Tank is the shared liquid-oxygen reservoir. There is exactly one row;
// its level is server-owned truth and only moves through the tank
// repository's reserve/deposit/release operations.
type Tank struct {
	ID                 int64     `json:"id"                   db:"id"                   gorm:"primaryKey;column:id"`
	CapacityG          int64     `json:"capacity_g"           db:"capacity_g"           gorm:"column:capacity_g;not null"`
	LevelG             int64     `json:"level_g"              db:"level_g"              gorm:"column:level_g;not null"`
	LowThresholdG      int64     `json:"low_threshold_g"      db:"low_threshold_g"      gorm:"column:low_threshold_g;not null;default:0"`
	CriticalThresholdG int64     `json:"critical_threshold_g" db:"critical_threshold_g" gorm:"column:critical_threshold_g;not null;default:0"`
	UpdatedAt          time.Time `json:"updated_at"           db:"updated_at"           gorm:"column:updated_at;autoUpdateTime"`
}

func (Tank) TableName() string { return "tank" }

// LevelPercent is derived, for alerting and display only.
func (t Tank) LevelPercent() float64 {
	if t.CapacityG <= 0 {
		return 0
	}
	return float64(t.LevelG) / float64(t.CapacityG) * 100
}

// AlertSeverity for threshold crossings.
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "low"
	AlertSeverityCritical AlertSeverity = "critical"
)

// TankAlert is the event published when the level crosses a threshold.
type TankAlert struct {
	ID        string        `json:"id"`
	Severity  AlertSeverity `json:"severity"`
	LevelG    int64         `json:"level_g"`
	CapacityG int64         `json:"capacity_g"`
	Percent   float64       `json:"percent"`
	CreatedAt time.Time     `json:"created_at"`
}

// Severity classifies the current level against the configured thresholds.
// Empty string means no alert.
func (t Tank) Severity() AlertSeverity {
	switch {
	case t.CriticalThresholdG > 0 && t.LevelG <= t.CriticalThresholdG:
		return AlertSeverityCritical
	case t.LowThresholdG > 0 && t.LevelG <= t.LowThresholdG:
		return AlertSeverityLow
	}
	return ""
}
