package db

import (
	"time"

	"gorm.io/datatypes"
)

// Lengths of the sized string columns below. Writers reject longer values.
const (
	MaxSessionIDLen   = 64
	MaxEventNameLen   = 100
	MaxPageLen        = 255
	MaxVariantNameLen = 50
)

// Event is a single tracked interaction (click, submit, ...) recorded by
// the front end. Rows are append-only.
type Event struct {
	ID uint `gorm:"primaryKey"`

	Timestamp time.Time `gorm:"index"`

	SessionID   string `gorm:"size:64;index"`
	EventName   string `gorm:"size:100;index"`
	PageURL     string `gorm:"size:255;index"`
	VariantName string `gorm:"size:50;index"`

	// Metadata holds arbitrary key/value pairs sent with the event.
	Metadata datatypes.JSONMap `gorm:"column:metadata;type:json"`

	Referrer  string `gorm:"type:text"`
	UserAgent string `gorm:"type:text"`
}

// PageView records one page render for a session.
type PageView struct {
	ID uint `gorm:"primaryKey"`

	Timestamp time.Time `gorm:"index"`

	SessionID   string `gorm:"size:64;index"`
	Page        string `gorm:"size:255;index"`
	VariantName string `gorm:"size:50;index"`
}

// Assignment records which variant a session was placed in.
type Assignment struct {
	ID uint `gorm:"primaryKey"`

	SessionID   string `gorm:"size:64;index"`
	VariantName string `gorm:"size:50;index"`
	CreatedAt   time.Time
}

func (Assignment) TableName() string {
	return "ab_assignments"
}

// VariantCount is one row of a count grouped by variant.
type VariantCount struct {
	VariantName string
	Count       int64
}

// KeyedCount is one row of a count grouped by variant and a secondary
// key (event name or page).
type KeyedCount struct {
	VariantName string
	Name        string
	Count       int64
}
