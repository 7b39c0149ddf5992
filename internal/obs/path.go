package obs

import "strings"

// CanonicalPath collapses resource identifiers in known routes so metric
// label cardinality stays bounded.
func CanonicalPath(p string) string {
	if p == "" {
		return "/"
	}
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	segs := strings.Split(strings.TrimPrefix(p, "/"), "/")
	if len(segs) < 3 || segs[0] != "v1" {
		return p
	}
	switch segs[1] {
	case "tasks":
		if segs[2] == "reorder" {
			return p
		}
		if len(segs) == 3 {
			return "/v1/tasks/:id"
		}
	case "organizations":
		if len(segs) == 3 {
			return "/v1/organizations/:id"
		}
		if len(segs) == 4 && segs[3] == "children" {
			return "/v1/organizations/:id/children"
		}
	case "users":
		if len(segs) == 3 {
			return "/v1/users/:id"
		}
		if len(segs) == 4 && segs[3] == "role" {
			return "/v1/users/:id/role"
		}
	}
	return p
}
