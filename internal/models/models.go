package models

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{&Document{}, &ExtractedTable{}, &Reconciliation{}, &Review{}}
}
