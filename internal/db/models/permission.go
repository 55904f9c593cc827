package models

import "time"

// Permission is a (resource, action) pair of the catalog.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey"`
	// Name is the unique identifier in resource.action format (e.g., "reports.read").
	Name string `gorm:"unique;size:150;not null"`
	// Resource is the resource this permission applies to (e.g., "reports").
	Resource string `gorm:"size:100;not null;index:idx_permission_resource_action"`
	// Action is the action allowed on the resource (e.g., "read").
	Action string `gorm:"size:50;not null;index:idx_permission_resource_action"`
	// Description provides a human-readable explanation of what this permission grants.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the permission was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permissions"
}
