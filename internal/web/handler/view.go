package handler

import (
	"time"

	"github.com/scopeguard/scopeguard/internal/db/models"
)

// AssignmentView is the JSON form of a role assignment.
type AssignmentView struct {
	ID                 uint64     `json:"id"`
	TenantID           string     `json:"tenant_id"`
	UserID             uint64     `json:"user_id"`
	ModuleCode         string     `json:"module_code"`
	RoleID             uint       `json:"role_id"`
	RoleName           string     `json:"role_name,omitempty"`
	AssignedBy         string     `json:"assigned_by"`
	AssignedAt         time.Time  `json:"assigned_at"`
	ValidFrom          time.Time  `json:"valid_from"`
	ValidUntil         *time.Time `json:"valid_until,omitempty"`
	Temporary          bool       `json:"temporary"`
	IsActive           bool       `json:"is_active"`
	DeactivatedAt      *time.Time `json:"deactivated_at,omitempty"`
	DeactivatedBy      string     `json:"deactivated_by,omitempty"`
	DeactivationReason string     `json:"deactivation_reason,omitempty"`
}

// NewAssignmentView converts a stored assignment.
func NewAssignmentView(a *models.RoleAssignment) AssignmentView {
	return AssignmentView{
		ID:                 a.ID,
		TenantID:           a.TenantID,
		UserID:             a.UserID,
		ModuleCode:         a.ModuleCode,
		RoleID:             a.RoleID,
		RoleName:           a.Role.Name,
		AssignedBy:         a.AssignedBy,
		AssignedAt:         a.AssignedAt,
		ValidFrom:          a.ValidFrom,
		ValidUntil:         a.ValidUntil,
		Temporary:          a.Temporary,
		IsActive:           a.IsActive,
		DeactivatedAt:      a.DeactivatedAt,
		DeactivatedBy:      a.DeactivatedBy,
		DeactivationReason: string(a.DeactivationReason),
	}
}

// NewAssignmentViews converts a list.
func NewAssignmentViews(rows []models.RoleAssignment) []AssignmentView {
	out := make([]AssignmentView, 0, len(rows))
	for i := range rows {
		out = append(out, NewAssignmentView(&rows[i]))
	}

	return out
}
