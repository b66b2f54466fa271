package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncState tracks ingest watermarks per scope (catalog, snapshots,
// results) so a restarted poller resumes where it left off.
type SyncState struct {
	Scope         string         `gorm:"primaryKey;type:varchar(50)"`
	WatermarkTS   *time.Time     `gorm:"type:timestamptz"`
	LastSuccessAt *time.Time     `gorm:"type:timestamptz"`
	LastAttemptAt *time.Time     `gorm:"type:timestamptz"`
	LastError     *string        `gorm:"type:text"`
	StatsJSON     datatypes.JSON `gorm:"type:jsonb"`
}

func (SyncState) TableName() string {
	return "sync_state"
}
