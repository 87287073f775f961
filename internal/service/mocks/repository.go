package mocks

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/godilite/driver-compliance/internal/embedtoken"
	"github.com/godilite/driver-compliance/internal/repository/models"
)

// MockProfileRepository is a mock implementation of the ProfileRepository interface
// for testing the service layer.
type MockProfileRepository struct {
	GetDriverProfileFunc func(ctx context.Context, driverID int64) (models.DriverProfile, error)
}

// GetDriverProfile implements the ProfileRepository interface
func (m *MockProfileRepository) GetDriverProfile(ctx context.Context, driverID int64) (models.DriverProfile, error) {
	if m.GetDriverProfileFunc != nil {
		return m.GetDriverProfileFunc(ctx, driverID)
	}
	return models.DriverProfile{}, errors.New("GetDriverProfileFunc not implemented")
}

// MockTokenIssuer records how many tokens were requested.
type MockTokenIssuer struct {
	IssueFunc func(req embedtoken.Request) (embedtoken.Token, error)
	calls     atomic.Int32
}

// Issue implements the TokenIssuer interface
func (m *MockTokenIssuer) Issue(req embedtoken.Request) (embedtoken.Token, error) {
	m.calls.Add(1)
	if m.IssueFunc != nil {
		return m.IssueFunc(req)
	}
	return embedtoken.Token{}, errors.New("IssueFunc not implemented")
}

func (m *MockTokenIssuer) Calls() int {
	return int(m.calls.Load())
}
