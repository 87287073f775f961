package service

import (
	"fmt"
	"strings"
)

// ViewMode names one tab of the profile page.
type ViewMode string

const (
	ViewDrugTests   ViewMode = "drug"
	ViewViolations  ViewMode = "violations"
	ViewRating      ViewMode = "rating"
	ViewCredentials ViewMode = "credentials"

	DefaultViewMode = ViewDrugTests
)

// ViewModes returns the tabs in display order.
func ViewModes() []ViewMode {
	return []ViewMode{ViewDrugTests, ViewViolations, ViewRating, ViewCredentials}
}

// ParseViewMode accepts a tab name; empty selects the default.
func ParseViewMode(s string) (ViewMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultViewMode, nil
	}
	for _, m := range ViewModes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown view %q", ErrInvalidViewMode, s)
}
