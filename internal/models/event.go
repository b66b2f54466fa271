package models

import (
	"time"
)

type Event struct {
	ID            string  `gorm:"primaryKey;type:varchar(50)"`
	CompetitionID *string `gorm:"type:varchar(50);index"`
	Name          string  `gorm:"type:text;not null"`
	Country       string  `gorm:"type:varchar(10)"`

	OpenDate   *time.Time `gorm:"type:timestamptz;index"`
	LastSeenAt time.Time  `gorm:"type:timestamptz;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Event) TableName() string {
	return "events"
}
