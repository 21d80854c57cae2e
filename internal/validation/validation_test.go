package validation

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// BindingMessage
// ---------------------------------------------------------------------------

type sampleRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=5"`
	Email       string   `json:"email" binding:"omitempty,email"`
	Level       string   `json:"experience_level" binding:"omitempty,oneof=beginner expert"`
	Link        string   `json:"github_url" binding:"omitempty,url"`
	Permissions []string `json:"permissions" binding:"omitempty,max=2"`
	TeamSize    int      `json:"team_size" binding:"omitempty,min=2,max=10"`
}

func bindMessage(t *testing.T, body string) string {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req sampleRequest
	return BindingMessage(c.ShouldBindJSON(&req))
}

func TestBindingMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing required", `{}`, `"name" is required`},
		{"string too long", `{"name":"abcdefg"}`, `"name" length must be less than or equal to 5 characters long`},
		{"bad email", `{"name":"a","email":"nope"}`, `"email" must be a valid email`},
		{"oneof", `{"name":"a","experience_level":"guru"}`, `"experience_level" must be one of [beginner, expert]`},
		{"url", `{"name":"a","github_url":"not a url"}`, `"github_url" must be a valid uri`},
		{"slice too long", `{"name":"a","permissions":["a","b","c"]}`, `"permissions" must contain less than or equal to 2 items`},
		{"number too small", `{"name":"a","team_size":1}`, `"team_size" must be greater than or equal to 2`},
		{"wrong type", `{"name":5}`, `"name" must be of type string`},
		{"malformed", `{"name":`, DefaultBindingMessage},
		{"valid", `{"name":"a"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bindMessage(t, tt.body); got != tt.want {
				t.Errorf("BindingMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBindingMessage_PlainError(t *testing.T) {
	if got := BindingMessage(errors.New("EOF")); got != DefaultBindingMessage {
		t.Errorf("BindingMessage(EOF) = %q, want default", got)
	}
}

func TestTagName(t *testing.T) {
	type s struct {
		A string `json:"alpha,omitempty"`
		B string `form:"beta"`
		C string
		D string `json:"-"`
	}
	typ := reflect.TypeOf(s{})
	want := []string{"alpha", "beta", "C", ""}
	for i, w := range want {
		if got := tagName(typ.Field(i)); got != w {
			t.Errorf("tagName(%s) = %q, want %q", typ.Field(i).Name, got, w)
		}
	}
}

// ---------------------------------------------------------------------------
// Lists
// ---------------------------------------------------------------------------

func TestNormalizeList(t *testing.T) {
	got := NormalizeList([]string{" Go", "go", "", "SQL ", "  ", "react"})
	want := []string{"Go", "SQL", "react"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeList() = %v, want %v", got, want)
	}
	if NormalizeList(nil) != nil {
		t.Error("NormalizeList(nil) should stay nil so partial updates skip the field")
	}
	if got := NormalizeList([]string{}); got == nil || len(got) != 0 {
		t.Errorf("NormalizeList([]) = %v, want empty non-nil", got)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"comma separated", []string{"go,sql"}, []string{"go", "sql"}},
		{"repeated", []string{"go", "sql"}, []string{"go", "sql"}},
		{"mixed with blanks", []string{"go, ,sql", "react"}, []string{"go", "sql", "react"}},
		{"empty", []string{""}, nil},
		{"absent", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitList(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitList(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateList(t *testing.T) {
	if err := ValidateList("skills", make([]string, MaxSkills)); err != nil {
		t.Errorf("ValidateList(max) = %v, want nil", err)
	}
	if err := ValidateList("skills", make([]string, MaxSkills+1)); err == nil {
		t.Error("ValidateList(max+1) = nil, want error")
	}
}

// ---------------------------------------------------------------------------
// ValidateJSONObject / ValidateExpiry
// ---------------------------------------------------------------------------

func TestValidateJSONObject(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{``, false},
		{`null`, false},
		{`{"weekends":true}`, false},
		{`[1,2]`, true},
		{`"text"`, true},
	}
	for _, tt := range tests {
		err := ValidateJSONObject("availability", json.RawMessage(tt.raw))
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateJSONObject(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
	}
}

func TestValidateExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	if err := ValidateExpiry(nil, now); err != nil {
		t.Errorf("nil expiry: %v", err)
	}
	if err := ValidateExpiry(&future, now); err != nil {
		t.Errorf("future expiry: %v", err)
	}
	if err := ValidateExpiry(&past, now); err == nil || !strings.Contains(err.Error(), "must be in the future") {
		t.Errorf("past expiry error = %v", err)
	}
	if err := ValidateExpiry(&now, now); err == nil {
		t.Error("expiry equal to now should be rejected")
	}
}
