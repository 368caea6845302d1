package model

import "time"

// TableStatus is the rental status of a billiard table.
type TableStatus string

const (
	TableAvailable   TableStatus = "AVAILABLE"
	TableOccupied    TableStatus = "OCCUPIED"
	TableMaintenance TableStatus = "MAINTENANCE"
)

// Valid reports whether s is one of the known statuses.
func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableOccupied, TableMaintenance:
		return true
	}
	return false
}

// Table represents a physical billiard table and its billing tier.
type Table struct {
	ID         int64       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Label      string      `gorm:"size:64;not null" json:"label"`
	Category   string      `gorm:"size:32;not null;index" json:"category"`
	HourlyRate int64       `gorm:"not null" json:"hourly_rate"`
	Status     TableStatus `gorm:"size:16;not null;default:AVAILABLE" json:"status"`
	LightOn    bool        `gorm:"not null;default:false" json:"light_on"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TableName keeps the table clear of the SQL keyword.
func (Table) TableName() string {
	return "billiard_tables"
}
