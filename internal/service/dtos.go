package service

import (
	"time"

	"github.com/godilite/driver-compliance/internal/repository/models"
)

type DerivedMetrics struct {
	AverageRating           AverageRating `json:"average_rating"`
	AverageRatingLabel      string        `json:"average_rating_label"`
	FeedbackCount           int           `json:"feedback_count"`
	ViolationsCount         int           `json:"violations_count"`
	InfractionsCount        int           `json:"infractions_count"`
	DrugTestsCount          int           `json:"drug_tests_count"`
	CredentialsValidCount   int           `json:"credentials_valid_count"`
	CredentialValidityRatio Ratio         `json:"credential_validity_ratio"`
}

// Embed is the client-facing part of an issued token. It never carries the secret.
type Embed struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProfileView is everything the display layer needs for one driver page.
type ProfileView struct {
	Driver     models.DriverProfile `json:"driver"`
	Metrics    DerivedMetrics       `json:"metrics"`
	Embed      Embed                `json:"embed"`
	ViewModes  []ViewMode           `json:"view_modes"`
	ActiveView ViewMode             `json:"active_view"`
}
