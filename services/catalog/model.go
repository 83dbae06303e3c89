package catalog

import (
	"strconv"
	"time"

	"linklock/services/geo"

	"gorm.io/datatypes"
)

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// Task is an advertiser-defined action a visitor performs to progress
// through a locker gate. The catalog is a global singleton, administered
// centrally, not per-locker.
type Task struct {
	ID          string                     `gorm:"column:id;primaryKey" json:"id"`
	Title       string                     `gorm:"column:title" json:"title"`
	Description string                     `gorm:"column:description" json:"description"`
	AdURL       string                     `gorm:"column:ad_url" json:"ad_url"`
	Devices     datatypes.JSONSlice[string] `gorm:"column:devices" json:"devices"`
	// CPM amounts are stored as text and parsed on use; unparseable values
	// count as zero so a misconfigured task drops out of gates instead of
	// failing visits.
	CPMTier1  string    `gorm:"column:cpm_tier1" json:"cpm_tier1"`
	CPMTier2  string    `gorm:"column:cpm_tier2" json:"cpm_tier2"`
	CPMTier3  string    `gorm:"column:cpm_tier3" json:"cpm_tier3"`
	Status    string    `gorm:"column:status" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }

// TierCPM returns the task's CPM for the given tier, coerced to a
// non-negative amount. Missing or unparseable values yield 0.
func (t Task) TierCPM(tier geo.Tier) float64 {
	var raw string
	switch tier {
	case geo.Tier1:
		raw = t.CPMTier1
	case geo.Tier2:
		raw = t.CPMTier2
	default:
		raw = t.CPMTier3
	}

	cpm, err := strconv.ParseFloat(raw, 64)
	if err != nil || cpm < 0 {
		return 0
	}
	return cpm
}

// SupportsDevice reports whether the task targets the given device family.
func (t Task) SupportsDevice(device geo.Device) bool {
	for _, d := range t.Devices {
		if d == string(device) {
			return true
		}
	}
	return false
}
