package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/db/controller/module"
	"github.com/scopeguard/scopeguard/internal/db/controller/role"
	"github.com/scopeguard/scopeguard/internal/db/controller/user"
	"github.com/scopeguard/scopeguard/internal/db/models"
)

type (
	// File is the TOML seed document.
	File struct {
		Modules           []ModuleEntry          `toml:"modules"           validate:"dive"`
		Tenants           []TenantEntry          `toml:"tenants"           validate:"dive"`
		Users             []UserEntry            `toml:"users"             validate:"dive"`
		Roles             []RoleEntry            `toml:"roles"             validate:"dive"`
		Incompatibilities []IncompatibilityEntry `toml:"incompatibilities" validate:"dive"`
	}

	// ModuleEntry registers a module.
	ModuleEntry struct {
		Code        string `toml:"code"        validate:"required,max=64"`
		Name        string `toml:"name"        validate:"required,max=100"`
		Description string `toml:"description" validate:"max=255"`
	}

	// TenantEntry lists which modules a tenant has switched on or off.
	TenantEntry struct {
		ID              string   `toml:"id"               validate:"required,max=64"`
		Modules         []string `toml:"modules"`
		InactiveModules []string `toml:"inactive_modules"`
	}

	// UserEntry is a directory entry.
	UserEntry struct {
		Tenant     string   `toml:"tenant"     validate:"required"`
		ID         uint64   `toml:"id"         validate:"required"`
		Username   string   `toml:"username"   validate:"required,max=100"`
		Email      string   `toml:"email"      validate:"omitempty,email"`
		Team       *uint64  `toml:"team"`
		Department *uint64  `toml:"department"`
		Manages    []uint64 `toml:"manages"`
		Disabled   bool     `toml:"disabled"`
	}

	// RoleEntry is a role of a module with its rules.
	RoleEntry struct {
		Module      string            `toml:"module"      validate:"required"`
		Name        string            `toml:"name"        validate:"required,max=100"`
		Description string            `toml:"description" validate:"max=255"`
		System      bool              `toml:"system"`
		Template    bool              `toml:"template"`
		Default     bool              `toml:"default"`
		Permissions []PermissionEntry `toml:"permissions" validate:"dive"`
		Scopes      []ScopeEntry      `toml:"scopes"      validate:"dive"`
		Fields      []FieldEntry      `toml:"fields"      validate:"dive"`
	}

	// PermissionEntry grants resource.action, optionally with a default scope.
	PermissionEntry struct {
		Key         string                 `toml:"key"         validate:"required"`
		Scope       *access.DataScopeLevel `toml:"scope"`
		Description string                 `toml:"description"`
	}

	// ScopeEntry lists the levels granted for one permission.
	ScopeEntry struct {
		Resource string                  `toml:"resource" validate:"required"`
		Action   string                  `toml:"action"   validate:"required"`
		Levels   []access.DataScopeLevel `toml:"levels"   validate:"required,min=1"`
	}

	// FieldEntry is a field rule; field "*" covers the whole resource.
	FieldEntry struct {
		Resource string                  `toml:"resource" validate:"required"`
		Field    string                  `toml:"field"    validate:"required"`
		Access   access.FieldAccessLevel `toml:"access"   validate:"required"`
		Strategy access.MaskingStrategy  `toml:"strategy"`
	}

	// IncompatibilityEntry declares two roles, written module/name, mutually exclusive.
	IncompatibilityEntry struct {
		First  string `toml:"first"  validate:"required,contains=/"`
		Second string `toml:"second" validate:"required,contains=/"`
		Reason string `toml:"reason" validate:"required,max=255"`
	}

	// Summary counts what a seed run touched.
	Summary struct {
		Modules           int
		Tenants           int
		Users             int
		Roles             int
		Incompatibilities int
	}
)

// LoadFile reads and validates a seed document.
func LoadFile(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog file %s", path)
	}

	if err := validator.New().Struct(&f); err != nil {
		return nil, fmt.Errorf("%w: catalog file %s: %w", access.ErrValidation, path, err)
	}

	return &f, nil
}

// SeedFile loads path and seeds it.
func SeedFile(ctx context.Context, db *gorm.DB, path string) (Summary, error) {
	f, err := LoadFile(path)
	if err != nil {
		return Summary{}, err
	}

	return Seed(ctx, db, f)
}

// Seed writes the document in one transaction. Existing modules, users and
// roles are updated in place, so seeding the same document twice is a no-op.
func Seed(ctx context.Context, db *gorm.DB, f *File) (Summary, error) {
	var sum Summary

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range f.Modules {
			if err := module.Save(tx, &models.Module{Code: m.Code, Name: m.Name, Description: m.Description}); err != nil {
				return err //nolint:wrapcheck
			}

			sum.Modules++
		}

		for _, t := range f.Tenants {
			if err := seedTenant(tx, t); err != nil {
				return err
			}

			sum.Tenants++
		}

		for _, u := range f.Users {
			if err := seedUser(tx, u); err != nil {
				return err
			}

			sum.Users++
		}

		for i := range f.Roles {
			if err := seedRole(tx, &f.Roles[i]); err != nil {
				return err
			}

			sum.Roles++
		}

		for _, inc := range f.Incompatibilities {
			if err := seedIncompatibility(tx, inc); err != nil {
				return err
			}

			sum.Incompatibilities++
		}

		return nil
	})
	if err != nil {
		return Summary{}, err //nolint:wrapcheck
	}

	log.Info().
		Int("modules", sum.Modules).
		Int("tenants", sum.Tenants).
		Int("users", sum.Users).
		Int("roles", sum.Roles).
		Int("incompatibilities", sum.Incompatibilities).
		Msg("catalog seeded")

	return sum, nil
}

func seedTenant(tx *gorm.DB, t TenantEntry) error {
	for _, code := range t.Modules {
		if err := module.SetActive(tx, t.ID, code, true); err != nil {
			return err //nolint:wrapcheck
		}
	}

	for _, code := range t.InactiveModules {
		if err := module.SetActive(tx, t.ID, code, false); err != nil {
			return err //nolint:wrapcheck
		}
	}

	return nil
}

func seedUser(tx *gorm.DB, u UserEntry) error {
	if err := user.Save(tx, &models.User{
		ID:           u.ID,
		TenantID:     u.Tenant,
		Username:     u.Username,
		Email:        u.Email,
		TeamID:       u.Team,
		DepartmentID: u.Department,
		Active:       !u.Disabled,
	}); err != nil {
		return err //nolint:wrapcheck
	}

	return user.SetManagedDepartments(tx, u.ID, u.Manages) //nolint:wrapcheck
}

func seedRole(tx *gorm.DB, e *RoleEntry) error {
	if _, err := module.Get(tx, e.Module); err != nil {
		return err //nolint:wrapcheck
	}

	perms := make([]models.RolePermission, 0, len(e.Permissions))

	for i, p := range e.Permissions {
		perm, err := permission(tx, p)
		if err != nil {
			return err
		}

		perms = append(perms, models.RolePermission{PermissionID: perm.ID, Position: i, DefaultScope: p.Scope})
	}

	scopes := make([]models.DataScopeRule, 0, len(e.Scopes))
	for _, s := range e.Scopes {
		scopes = append(scopes, models.DataScopeRule{
			Resource: s.Resource,
			Action:   s.Action,
			Levels:   access.NewScopeSet(s.Levels...),
		})
	}

	fields := make([]models.FieldRule, 0, len(e.Fields))
	for _, f := range e.Fields {
		fields = append(fields, models.FieldRule{
			Resource:    f.Resource,
			Field:       f.Field,
			AccessLevel: f.Access,
			Strategy:    f.Strategy,
		})
	}

	existing, err := role.GetByName(tx, e.Module, e.Name)

	switch {
	case errors.Is(err, access.ErrNotFound):
		return role.Create(tx, &models.Role{ //nolint:wrapcheck
			ModuleCode:  e.Module,
			Name:        e.Name,
			Description: e.Description,
			IsSystem:    e.System,
			IsTemplate:  e.Template,
			IsDefault:   e.Default,
			Permissions: perms,
			ScopeRules:  scopes,
			FieldRules:  fields,
		})
	case err != nil:
		return err //nolint:wrapcheck
	}

	return replaceRole(tx, existing, e, perms, scopes, fields)
}

// replaceRole rewrites the flags and rules of an existing role, keeping its ID
// so assignments stay attached.
func replaceRole(
	tx *gorm.DB, r *models.Role, e *RoleEntry,
	perms []models.RolePermission, scopes []models.DataScopeRule, fields []models.FieldRule,
) error {
	if err := tx.Model(r).Updates(map[string]any{
		"description": e.Description,
		"is_system":   e.System,
		"is_template": e.Template,
		"is_default":  e.Default,
	}).Error; err != nil {
		return access.Internal(err, "update role")
	}

	for _, m := range []any{&models.RolePermission{}, &models.DataScopeRule{}, &models.FieldRule{}} {
		if err := tx.Where("role_id = ?", r.ID).Delete(m).Error; err != nil {
			return access.Internal(err, "clear role rules")
		}
	}

	for i := range perms {
		perms[i].RoleID = r.ID
	}

	for i := range scopes {
		scopes[i].RoleID = r.ID
	}

	for i := range fields {
		fields[i].RoleID = r.ID
	}

	if len(perms) > 0 {
		if err := tx.Create(&perms).Error; err != nil {
			return access.Internal(err, "write role permissions")
		}
	}

	if len(scopes) > 0 {
		if err := tx.Create(&scopes).Error; err != nil {
			return access.Internal(err, "write scope rules")
		}
	}

	if len(fields) > 0 {
		if err := tx.Create(&fields).Error; err != nil {
			return access.Internal(err, "write field rules")
		}
	}

	return nil
}

// permission returns the catalog row of p, creating it on first use.
func permission(tx *gorm.DB, p PermissionEntry) (*models.Permission, error) {
	key, err := access.ParsePermissionKey(p.Key)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	perm := models.Permission{Name: key.String()}
	if err = tx.Where(models.Permission{Name: key.String()}).
		Attrs(models.Permission{Resource: key.Resource, Action: key.Action, Description: p.Description}).
		FirstOrCreate(&perm).Error; err != nil {
		return nil, access.Internal(err, "write permission")
	}

	return &perm, nil
}

func seedIncompatibility(tx *gorm.DB, e IncompatibilityEntry) error {
	first, err := roleRef(tx, e.First)
	if err != nil {
		return err
	}

	second, err := roleRef(tx, e.Second)
	if err != nil {
		return err
	}

	_, err = role.DeclareIncompatible(tx, first.ID, second.ID, e.Reason)

	return err //nolint:wrapcheck
}

// roleRef resolves "module/name".
func roleRef(tx *gorm.DB, ref string) (*models.Role, error) {
	moduleCode, name, ok := strings.Cut(ref, "/")
	if !ok {
		return nil, fmt.Errorf("%w: role reference %q is not module/name", access.ErrValidation, ref)
	}

	return role.GetByName(tx, moduleCode, name) //nolint:wrapcheck
}
