package model

import "testing"

func TestCapabilitySet_Has_exact(t *testing.T) {
	cs := CapabilitySet{"submissions:wizard:execute": true}
	if !cs.Has("submissions:wizard:execute") {
		t.Error("exact capability should match")
	}
	if cs.Has("submissions:wizard:cancel") {
		t.Error("different capability should not match")
	}
}

func TestCapabilitySet_Has_wildcard(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		cap     string
		want    bool
	}{
		{"global wildcard", "*", "finance:reports:view", true},
		{"prefix wildcard", "submissions:*", "submissions:wizard:execute", true},
		{"deep prefix wildcard", "finance:reports:*", "finance:reports:view", true},
		{"non-wildcard prefix", "finance:reports", "finance:reports:view", false},
		{"unrelated prefix", "reviews:*", "submissions:wizard:execute", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := CapabilitySet{tt.pattern: true}
			if got := cs.Has(tt.cap); got != tt.want {
				t.Errorf("Has(%q) with pattern %q = %v, want %v", tt.cap, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestCapabilitySet_HasAll(t *testing.T) {
	cs := CapabilitySet{"submissions:*": true, "reviews:queue:view": true}
	if !cs.HasAll("submissions:wizard:execute", "reviews:queue:view") {
		t.Error("HasAll should match both")
	}
	if cs.HasAll("submissions:wizard:execute", "finance:reports:view") {
		t.Error("HasAll should fail when one capability is missing")
	}
}

func TestCapabilitySet_HasAny(t *testing.T) {
	cs := CapabilitySet{"reviews:queue:view": true}
	if !cs.HasAny("finance:reports:view", "reviews:queue:view") {
		t.Error("HasAny should match the second capability")
	}
	if cs.HasAny("finance:reports:view", "journals:manage:execute") {
		t.Error("HasAny should fail when nothing matches")
	}
}

func TestRequestContext_HasRole(t *testing.T) {
	rctx := &RequestContext{Roles: []string{"author", "reviewer"}}
	if !rctx.HasRole(RoleReviewer) {
		t.Error("HasRole(reviewer) = false, want true")
	}
	if rctx.HasRole(RoleAccountant) {
		t.Error("HasRole(accountant) = true, want false")
	}
}

func TestRequestContext_Validate(t *testing.T) {
	rctx := &RequestContext{SubjectID: "user-1", TenantID: "tenant-1"}
	if err := rctx.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	missing := &RequestContext{}
	if err := missing.Validate(); err == nil {
		t.Error("Validate() with missing fields should return error")
	}
}
