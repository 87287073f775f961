package mocks

import (
	"context"
	"errors"

	"github.com/godilite/driver-compliance/internal/service"
)

// MockProfileAssembler is a mock implementation of the ProfileAssembler interface
// for testing the handler layer. It uses function-based mocking for flexibility.
type MockProfileAssembler struct {
	AssembleFunc func(ctx context.Context, driverID int64) (service.ProfileView, error)
}

// Assemble implements the ProfileAssembler interface
func (m *MockProfileAssembler) Assemble(ctx context.Context, driverID int64) (service.ProfileView, error) {
	if m.AssembleFunc != nil {
		return m.AssembleFunc(ctx, driverID)
	}
	return service.ProfileView{}, errors.New("AssembleFunc not implemented")
}
