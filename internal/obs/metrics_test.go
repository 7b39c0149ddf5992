package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                "/",
		"/metrics":                        "/metrics",
		"/v1/tasks/01J5TASK":              "/v1/tasks/:id",
		"/v1/tasks/reorder":               "/v1/tasks/reorder",
		"/v1/organizations/org-1":         "/v1/organizations/:id",
		"/v1/organizations/org-1/children": "/v1/organizations/:id/children",
		"/v1/users/u-9/role":              "/v1/users/:id/role",
		"/v1/audit":                       "/v1/audit",
		"/v1/tasks?status=todo":           "/v1/tasks",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
