package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

// Excluded references the incoming row inside an ON CONFLICT clause.
func Excluded(column string) any {
	return sqlbuilder.Raw(fmt.Sprintf("EXCLUDED.%s", column))
}

// OnConflictUpdate appends an upsert clause that takes the incoming row's
// values for the given columns.
func OnConflictUpdate(ib *sqlbuilder.InsertBuilder, conflict string, columns ...string) *sqlbuilder.InsertBuilder {
	assignments := make([]string, 0, len(columns))
	for _, column := range columns {
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", column, column))
	}
	ib.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", conflict, strings.Join(assignments, ", ")))
	return ib
}

// OnConflictDoNothing appends a clause that drops conflicting inserts.
func OnConflictDoNothing(ib *sqlbuilder.InsertBuilder) *sqlbuilder.InsertBuilder {
	ib.SQL("ON CONFLICT DO NOTHING")
	return ib
}
