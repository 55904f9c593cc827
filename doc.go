// Package main provides the entry point of ScopeGuard, a multi-tenant
// permission decision engine. It keeps role assignments per tenant, user and
// module with an append-only history, expires temporary grants on a schedule,
// and answers which records (data scope) and which fields (field access with
// masking) a user may see through a JSON API built on Fiber. Persistence uses
// gorm on SQLite, MySQL or PostgreSQL.
package main
