// input.go normalizes list parameters and checks the profile and API key fields that
// binding tags cannot express.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MaxSkills caps how many skills or interests one profile may list
const MaxSkills = 50

// NormalizeList trims every entry, drops empties, and removes case-insensitive duplicates
// while keeping the first spelling and the original order.
func NormalizeList(items []string) []string {
	if items == nil {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// SplitList accepts a query parameter given either comma-separated or repeated
// (skills=go,sql or skills=go&skills=sql) and returns the normalized entries.
func SplitList(values []string) []string {
	var parts []string
	for _, v := range values {
		parts = append(parts, strings.Split(v, ",")...)
	}
	out := NormalizeList(parts)
	if len(out) == 0 {
		return nil
	}
	return out
}

// ValidateList checks a skill-style list for size
func ValidateList(field string, items []string) error {
	if len(items) > MaxSkills {
		return fmt.Errorf("%q must contain less than or equal to %d items", field, MaxSkills)
	}
	return nil
}

// ValidateJSONObject reports an error when raw is present but is not a JSON object
func ValidateJSONObject(field string, raw json.RawMessage) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("%q must be of type object", field)
	}
	return nil
}

// ValidateExpiry requires an optional expiry to lie in the future
func ValidateExpiry(expiresAt *time.Time, now time.Time) error {
	if expiresAt == nil {
		return nil
	}
	if !expiresAt.After(now) {
		return fmt.Errorf("%q must be in the future", "expires_at")
	}
	return nil
}
