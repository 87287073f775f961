package models

import (
	"errors"
	"fmt"
)

var (
	ErrDriverNotFound    = errors.New("driver not found")
	ErrSourceUnavailable = errors.New("profile source unavailable")
)

// DriverProfile is a read-only snapshot of one driver as returned by a profile source.
type DriverProfile struct {
	ID              int64              `json:"id"`
	Name            string             `json:"name"`
	LicenseNumber   string             `json:"license_number"`
	Contact         string             `json:"contact"`
	Feedback        []FeedbackEntry    `json:"feedback"`
	Violations      []ViolationEntry   `json:"violations"`
	Infractions     []InfractionEntry  `json:"infractions"`
	DrugTestResults []DrugTestResult   `json:"drug_test_results"`
	Credentials     []CredentialRecord `json:"credentials"`
}

// FeedbackEntry ratings are expected on a 1-5 scale but are not clamped.
type FeedbackEntry struct {
	ID      int64   `json:"id"`
	Rating  float64 `json:"rating"`
	Content string  `json:"content"`
}

type ViolationEntry struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Date        string `json:"date"` // YYYY-MM-DD
}

type InfractionEntry struct {
	ID          int64  `json:"id"`
	Incident    string `json:"incident"`
	Description string `json:"description"`
	Date        string `json:"date"` // YYYY-MM-DD
}

type DrugTestResult struct {
	ID       int64  `json:"id"`
	TestDate string `json:"test_date"`
	Result   string `json:"result"`
}

// CredentialRecord.Remarks is nil when the source sent null.
type CredentialRecord struct {
	ID      int64   `json:"id"`
	Type    string  `json:"type"`
	IsValid bool    `json:"is_valid"`
	Remarks *string `json:"remarks"`
}

// Normalize replaces nil collections with empty ones so they encode as [] rather than null.
func (p *DriverProfile) Normalize() {
	if p.Feedback == nil {
		p.Feedback = []FeedbackEntry{}
	}
	if p.Violations == nil {
		p.Violations = []ViolationEntry{}
	}
	if p.Infractions == nil {
		p.Infractions = []InfractionEntry{}
	}
	if p.DrugTestResults == nil {
		p.DrugTestResults = []DrugTestResult{}
	}
	if p.Credentials == nil {
		p.Credentials = []CredentialRecord{}
	}
}

// Validate checks that every sub-record id is unique within its collection.
func (p *DriverProfile) Validate() error {
	if err := uniqueIDs("feedback", len(p.Feedback), func(i int) int64 { return p.Feedback[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("violations", len(p.Violations), func(i int) int64 { return p.Violations[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("infractions", len(p.Infractions), func(i int) int64 { return p.Infractions[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("drug_test_results", len(p.DrugTestResults), func(i int) int64 { return p.DrugTestResults[i].ID }); err != nil {
		return err
	}
	return uniqueIDs("credentials", len(p.Credentials), func(i int) int64 { return p.Credentials[i].ID })
}

func uniqueIDs(collection string, n int, id func(int) int64) error {
	seen := make(map[int64]struct{}, n)
	for i := 0; i < n; i++ {
		v := id(i)
		if _, dup := seen[v]; dup {
			return fmt.Errorf("duplicate id %d in %s", v, collection)
		}
		seen[v] = struct{}{}
	}
	return nil
}
