package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverProfileDecode(t *testing.T) {
	payload := `{
		"id": 7,
		"name": "Ada Lovelace",
		"license_number": "DL-001",
		"contact": "ada@example.com",
		"feedback": [{"id": 1, "rating": 4.5, "content": "smooth"}],
		"violations": null,
		"infractions": [{"id": 3, "incident": "Late", "description": "late delivery", "date": "2025-03-01"}],
		"credentials": [
			{"id": 1, "type": "CDL", "is_valid": true, "remarks": null},
			{"id": 2, "type": "Medical", "is_valid": false, "remarks": ""}
		]
	}`

	var p DriverProfile
	require.NoError(t, json.Unmarshal([]byte(payload), &p))
	p.Normalize()

	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "DL-001", p.LicenseNumber)
	assert.Equal(t, 4.5, p.Feedback[0].Rating)
	assert.Equal(t, "Late", p.Infractions[0].Incident)
	assert.NotNil(t, p.Violations)
	assert.Empty(t, p.Violations)
	assert.NotNil(t, p.DrugTestResults)

	assert.Nil(t, p.Credentials[0].Remarks)
	require.NotNil(t, p.Credentials[1].Remarks)
	assert.Equal(t, "", *p.Credentials[1].Remarks)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"drug_test_results":[]`)
	assert.Contains(t, string(out), `"remarks":null`)
}

func TestDriverProfileValidate(t *testing.T) {
	t.Run("unique ids", func(t *testing.T) {
		p := DriverProfile{
			Feedback:    []FeedbackEntry{{ID: 1}, {ID: 2}},
			Credentials: []CredentialRecord{{ID: 1}},
		}
		assert.NoError(t, p.Validate())
	})

	t.Run("ids may repeat across collections", func(t *testing.T) {
		p := DriverProfile{
			Violations:  []ViolationEntry{{ID: 1}},
			Infractions: []InfractionEntry{{ID: 1}},
		}
		assert.NoError(t, p.Validate())
	})

	t.Run("duplicate within collection", func(t *testing.T) {
		p := DriverProfile{DrugTestResults: []DrugTestResult{{ID: 9}, {ID: 9}}}
		err := p.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "drug_test_results")
	})
}
