package auth

import (
	"reflect"
	"testing"
)

func TestValidateScopes(t *testing.T) {
	tests := []struct {
		name    string
		scopes  []string
		wantErr bool
	}{
		{"all valid", []string{"read", "write", "admin"}, false},
		{"empty list", []string{}, false},
		{"unknown scope", []string{"read", "delete"}, true},
		{"case sensitive", []string{"READ"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScopes(tt.scopes)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateScopes(%v) error = %v, wantErr %v", tt.scopes, err, tt.wantErr)
			}
		})
	}
}

func TestHasScope(t *testing.T) {
	tests := []struct {
		name     string
		scopes   []string
		required Scope
		want     bool
	}{
		{"exact match", []string{"read"}, ScopeRead, true},
		{"missing", []string{"read"}, ScopeWrite, false},
		{"admin satisfies write", []string{"admin"}, ScopeWrite, true},
		{"admin satisfies admin", []string{"admin"}, ScopeAdmin, true},
		{"write does not imply admin", []string{"write"}, ScopeAdmin, false},
		{"write does not imply read", []string{"write"}, ScopeRead, false},
		{"nil scopes", nil, ScopeRead, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasScope(tt.scopes, tt.required); got != tt.want {
				t.Errorf("HasScope(%v, %s) = %v, want %v", tt.scopes, tt.required, got, tt.want)
			}
		})
	}
}

func TestHasAllScopes(t *testing.T) {
	scopes := []string{"read"}
	if !HasAllScopes(scopes, []Scope{ScopeRead}) {
		t.Error("HasAllScopes(read) = false, want true")
	}
	if !HasAllScopes(scopes, nil) {
		t.Error("HasAllScopes(none) = false, want true")
	}
	if HasAllScopes(scopes, []Scope{ScopeWrite, ScopeRead}) {
		t.Error("HasAllScopes() = true, want false")
	}
	if !HasAllScopes([]string{"admin"}, AllScopes()) {
		t.Error("admin should satisfy every scope")
	}
}

func TestNormalizeScopes(t *testing.T) {
	if got := NormalizeScopes(nil); !reflect.DeepEqual(got, []string{"read"}) {
		t.Errorf("NormalizeScopes(nil) = %v, want [read]", got)
	}
	if got := NormalizeScopes([]string{"write", "read", "write"}); !reflect.DeepEqual(got, []string{"write", "read"}) {
		t.Errorf("NormalizeScopes() = %v, want [write read]", got)
	}
}
