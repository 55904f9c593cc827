package models

import "time"

// Module is a functional area owning its own role catalog (e.g., finance, hr).
type Module struct {
	Code        string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:100;not null"`
	Description string `gorm:"size:255"`
	CreatedAt   time.Time
}

// TableName specifies the database table name for the Module model.
func (Module) TableName() string {
	return "modules"
}

// TenantModule activates a module for a tenant.
type TenantModule struct {
	TenantID   string `gorm:"primaryKey;size:64"`
	ModuleCode string `gorm:"primaryKey;size:64"`
	Active     bool   `gorm:"not null"`
	UpdatedAt  time.Time
}

// TableName specifies the database table name for the TenantModule model.
func (TenantModule) TableName() string {
	return "tenant_modules"
}
