package grpc

import (
	"context"

	"github.com/godilite/driver-compliance/internal/service"
)

type ProfileAssembler interface {
	Assemble(ctx context.Context, driverID int64) (service.ProfileView, error)
}
