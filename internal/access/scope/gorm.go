package scope

import "gorm.io/gorm"

// GormScope applies the filter to a query, for use with (*gorm.DB).Scopes.
func GormScope(f Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Unrestricted() {
			return db
		}

		return db.Where(f.Predicate, f.Args...)
	}
}
