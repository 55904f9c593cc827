// Package access holds the vocabulary shared by the permission decision engine.
//
// It defines the closed enumerations the resolvers match on exhaustively:
//   - DataScopeLevel and ScopeSet describe how wide a grant reaches
//     (none < own < team < department < tenant < global)
//   - FieldAccessLevel describes how a single field may be disclosed
//   - MaskingStrategy selects the value transformation for masked and partial fields
//
// EffectivePermissionSet is the per-request union of everything a user holds
// across their active role assignments. It is produced by package aggregate and
// is the only input of the scope and field resolvers.
//
// The error taxonomy (ErrNotFound, ErrValidation, ErrInvalidState, ErrConflict,
// ErrInternal) is shared by the assignment store, the catalog and the web layer.
package access
