package db

import (
	"time"

	"gorm.io/datatypes"
)

// Event represents a single behavioral event submitted by an external
// site. Events are written once at ingestion and never mutated.
type Event struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time `gorm:"index:idx_events_app_created,priority:2"`

	// AppID is the registered app (site) this event belongs to.
	AppID uint `gorm:"index:idx_events_app_created,priority:1;index:idx_events_app_name;not null"`

	// EventName is the type of event, e.g. "click" or "visit".
	EventName string `gorm:"size:128;index:idx_events_app_name;not null"`

	URL      string `gorm:"size:2048"`
	Referrer string `gorm:"size:2048"`

	// Device is the reported device class ("desktop", "mobile", ...).
	// Empty when the submitting site did not report one.
	Device string `gorm:"size:64"`

	IPAddress string `gorm:"size:64"`

	// SubjectUserID identifies the end user the event was observed for
	// (typically a cookie id). Empty for anonymous events.
	SubjectUserID string `gorm:"size:128;index"`

	// Metadata holds free-form client context (browser, os, screenSize).
	Metadata datatypes.JSONMap `gorm:"type:json"`
}

// App status values.
const (
	AppStatusActive  = "active"
	AppStatusRevoked = "revoked"
)

// App is a registered website or application that submits events under
// its own API key. Apps are never hard-deleted; keys are revoked or
// regenerated instead.
type App struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// OwnerUserID links the app to the dashboard user that registered it.
	OwnerUserID uint `gorm:"index;not null"`

	Name string `gorm:"size:128;not null"`
	URL  string `gorm:"size:2048;not null"`

	// APIKey is the bearer credential for event submission.
	APIKey string `gorm:"uniqueIndex;size:255;not null"`

	// Status is "active" or "revoked".
	Status string `gorm:"size:16;not null;default:active"`

	// ExpiresAt optionally bounds the key's validity.
	ExpiresAt *time.Time
}

// User represents a dashboard user that signs in to query summaries and
// manage apps. The bootstrap admin user (from env) is created as a row
// in this table on startup.
type User struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"size:255;not null"`
}
