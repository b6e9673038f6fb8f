package store

import (
	"fmt"
	"strings"
)

func getUnsupportedDriverError(driver string) error {
	return fmt.Errorf("unsupported driver: %s", driver)
}

// rebind converts a query written with ? placeholders into the placeholder
// syntax of the given driver. SQLite keeps ?; postgres gets $1, $2, ...
func rebind(driver string, query string) string {
	if driver != PostgresDriver {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ownerClause returns the visibility predicate for the given owner, to be
// appended with AND to an existing WHERE clause. Records without an owner are
// legacy records and stay visible to every owner.
func ownerClause(owner string) (string, []any) {
	if owner == "" {
		return "", nil
	}
	return "(owner = ? OR owner = '')", []any{owner}
}
