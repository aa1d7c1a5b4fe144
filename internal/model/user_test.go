package model

import "testing"

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleUser} {
		if !r.Valid() {
			t.Fatalf("%s should be valid", r)
		}
	}
	for _, r := range []Role{"", "admin", "OWNER"} {
		if r.Valid() {
			t.Fatalf("%q should be invalid", r)
		}
	}
}
