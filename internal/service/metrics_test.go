package service

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/godilite/driver-compliance/internal/repository/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedback(ratings ...float64) []models.FeedbackEntry {
	out := make([]models.FeedbackEntry, len(ratings))
	for i, r := range ratings {
		out[i] = models.FeedbackEntry{ID: int64(i + 1), Rating: r}
	}
	return out
}

func TestComputeAverageRating(t *testing.T) {
	cases := []struct {
		name    string
		ratings []float64
		want    string
		value   float64
	}{
		{name: "whole mean", ratings: []float64{4, 5, 3}, want: "4.00", value: 4},
		{name: "half mean", ratings: []float64{5, 4}, want: "4.50", value: 4.5},
		{name: "rounds up", ratings: []float64{1, 2, 2}, want: "1.67", value: 1.67},
		{name: "rounds down", ratings: []float64{1, 1, 2}, want: "1.33", value: 1.33},
		{name: "genuine zero", ratings: []float64{0, 0}, want: "0.00", value: 0},
		{name: "negative ratings", ratings: []float64{-1, -2}, want: "-1.50", value: -1.5},
		{name: "out of range magnitude", ratings: []float64{100, 2}, want: "51.00", value: 51},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			avg := ComputeAverageRating(feedback(tc.ratings...))
			assert.True(t, avg.Valid)
			assert.InDelta(t, tc.value, avg.Value, 1e-9)
			assert.Equal(t, tc.want, avg.String())
		})
	}

	t.Run("huge magnitudes stay finite", func(t *testing.T) {
		for _, tc := range []struct {
			ratings []float64
			want    float64
		}{
			{ratings: []float64{1e307}, want: 1e307},
			{ratings: []float64{1e308, 1e308}, want: 1e308},
			{ratings: []float64{math.MaxFloat64, math.MaxFloat64, -math.MaxFloat64}, want: math.MaxFloat64 / 3},
			{ratings: []float64{-1e308, -1e308, -1e308}, want: -1e308},
			{ratings: []float64{1e16, 3e16}, want: 2e16},
		} {
			avg := ComputeAverageRating(feedback(tc.ratings...))
			require.True(t, avg.Valid)
			assert.False(t, math.IsInf(avg.Value, 0), "%v", tc.ratings)
			assert.InEpsilon(t, tc.want, avg.Value, 1e-12, "%v", tc.ratings)
			assert.NotContains(t, avg.String(), "Inf")
		}
	})

	t.Run("no feedback is the sentinel", func(t *testing.T) {
		for _, in := range [][]models.FeedbackEntry{nil, {}} {
			avg := ComputeAverageRating(in)
			assert.False(t, avg.Valid)
			assert.Equal(t, NoRatingLabel, avg.String())
			assert.NotEqual(t, ComputeAverageRating(feedback(0)), avg)
		}
	})

	t.Run("input is not modified", func(t *testing.T) {
		in := feedback(3, 4)
		before := append([]models.FeedbackEntry(nil), in...)
		_ = ComputeAverageRating(in)
		assert.Equal(t, before, in)
	})
}

func TestAverageRatingJSON(t *testing.T) {
	out, err := json.Marshal(AverageRating{Value: 4.5, Valid: true})
	require.NoError(t, err)
	assert.JSONEq(t, `"4.50"`, string(out))

	out, err = json.Marshal(AverageRating{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestCredentialMetrics(t *testing.T) {
	creds := []models.CredentialRecord{
		{ID: 1, IsValid: true},
		{ID: 2, IsValid: false},
		{ID: 3, IsValid: true},
	}

	assert.Equal(t, 2, CountValidCredentials(creds))

	ratio := CredentialValidityRatio(creds)
	assert.True(t, ratio.Valid)
	assert.Equal(t, 0.67, ratio.Value)

	empty := CredentialValidityRatio(nil)
	assert.False(t, empty.Valid)
	out, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestComputeMetrics(t *testing.T) {
	p := models.DriverProfile{
		ID:          42,
		Feedback:    feedback(5, 4),
		Violations:  []models.ViolationEntry{{ID: 1, Type: "Speeding"}},
		Infractions: []models.InfractionEntry{{ID: 1}, {ID: 2}},
		Credentials: []models.CredentialRecord{{ID: 1, IsValid: true}},
	}

	m := ComputeMetrics(p)

	assert.Equal(t, "4.50", m.AverageRating.String())
	assert.Equal(t, "4.50", m.AverageRatingLabel)
	assert.Equal(t, 2, m.FeedbackCount)
	assert.Equal(t, 1, m.ViolationsCount)
	assert.Equal(t, 2, m.InfractionsCount)
	assert.Equal(t, 0, m.DrugTestsCount)
	assert.Equal(t, 1, m.CredentialsValidCount)
	assert.Equal(t, 1.0, m.CredentialValidityRatio.Value)

	empty := ComputeMetrics(models.DriverProfile{ID: 1})
	assert.False(t, empty.AverageRating.Valid)
	assert.Equal(t, NoRatingLabel, empty.AverageRatingLabel)
	assert.False(t, empty.CredentialValidityRatio.Valid)
}
