package pg

import "strings"

// pgStringArray renders ids as a Postgres array literal for any($n::text[])
// predicates. Identifiers are ULIDs, so no quoting or escaping is needed.
func pgStringArray(vals []string) string {
	return "{" + strings.Join(vals, ",") + "}"
}
