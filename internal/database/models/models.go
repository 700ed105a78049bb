// Package models contains the database model definitions.
// These models map directly to the SQLite database tables.
package models

import (
	"time"
)

// Device represents a patched lighting device.
// Table: devices
type Device struct {
	ID           string `gorm:"column:id;primaryKey"`
	Name         string `gorm:"column:name;uniqueIndex"`
	TypeID       string `gorm:"column:type_id"`
	Universe     int    `gorm:"column:universe;default:1"`
	StartChannel int    `gorm:"column:start_channel;default:1"`

	// DefaultValues holds the device's startup control values as a JSON
	// object keyed by control name.
	DefaultValues *string `gorm:"column:default_values"`

	// LinkedTo names the device this one follows; SyncedControls is a JSON
	// array of control names to mirror (empty means all).
	LinkedTo       *string `gorm:"column:linked_to;index"`
	SyncedControls *string `gorm:"column:synced_controls"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Device) TableName() string { return "devices" }

// Animation represents a stored keyframe animation.
// Table: animations
type Animation struct {
	ID   string `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;uniqueIndex"`

	// Document is the JSON serialization of the animation: target controls,
	// target label, and the keyframe list.
	Document string `gorm:"column:document"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Animation) TableName() string { return "animations" }

// Mapping represents a stored input mapping.
// Table: mappings
type Mapping struct {
	ID string `gorm:"column:id;primaryKey"`

	// Document is the JSON serialization of the mapping configuration.
	Document string `gorm:"column:document"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Mapping) TableName() string { return "mappings" }

// Setting represents a key/value system setting.
// Table: settings
type Setting struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Key       string    `gorm:"column:key;uniqueIndex"`
	Value     string    `gorm:"column:value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Setting) TableName() string { return "settings" }
