package service

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/godilite/driver-compliance/internal/repository/models"
)

const NoRatingLabel = "No rating yet"

// AverageRating is the mean feedback rating. Valid is false when there was no
// feedback at all, which is distinct from a genuine 0.00 average.
type AverageRating struct {
	Value float64
	Valid bool
}

func (a AverageRating) String() string {
	if !a.Valid {
		return NoRatingLabel
	}
	return strconv.FormatFloat(a.Value, 'f', 2, 64)
}

// MarshalJSON encodes the rating as a fixed two-decimal string, or null.
func (a AverageRating) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.String())
}

// Ratio is a 0..1 fraction with the same no-data convention as AverageRating.
type Ratio struct {
	Value float64
	Valid bool
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// ComputeAverageRating returns the arithmetic mean of all ratings rounded to
// two decimals.
func ComputeAverageRating(feedback []models.FeedbackEntry) AverageRating {
	if len(feedback) == 0 {
		return AverageRating{}
	}
	n := float64(len(feedback))
	var sum float64
	for _, f := range feedback {
		sum += f.Rating
	}
	if math.IsInf(sum, 0) {
		// the mean of finite ratings is finite even when their sum is not
		sum = 0
		for _, f := range feedback {
			sum += f.Rating / n
		}
		return AverageRating{Value: round2(sum), Valid: true}
	}
	return AverageRating{Value: round2(sum / n), Valid: true}
}

func CountViolations(v []models.ViolationEntry) int { return len(v) }

func CountInfractions(i []models.InfractionEntry) int { return len(i) }

func CountDrugTests(d []models.DrugTestResult) int { return len(d) }

func CountValidCredentials(creds []models.CredentialRecord) int {
	n := 0
	for _, c := range creds {
		if c.IsValid {
			n++
		}
	}
	return n
}

// CredentialValidityRatio is the share of valid credentials, rounded to two decimals.
func CredentialValidityRatio(creds []models.CredentialRecord) Ratio {
	if len(creds) == 0 {
		return Ratio{}
	}
	return Ratio{Value: round2(float64(CountValidCredentials(creds)) / float64(len(creds))), Valid: true}
}

// ComputeMetrics derives every summary value shown on the profile. It reads the
// profile and never modifies it.
func ComputeMetrics(p models.DriverProfile) DerivedMetrics {
	avg := ComputeAverageRating(p.Feedback)
	return DerivedMetrics{
		AverageRating:           avg,
		AverageRatingLabel:      avg.String(),
		FeedbackCount:           len(p.Feedback),
		ViolationsCount:         CountViolations(p.Violations),
		InfractionsCount:        CountInfractions(p.Infractions),
		DrugTestsCount:          CountDrugTests(p.DrugTestResults),
		CredentialsValidCount:   CountValidCredentials(p.Credentials),
		CredentialValidityRatio: CredentialValidityRatio(p.Credentials),
	}
}

// round2 leaves values at or above 1e15 alone; they carry no hundredths.
func round2(v float64) float64 {
	if math.Abs(v) >= 1e15 || math.IsNaN(v) {
		return v
	}
	return math.Round(v*100) / 100
}
