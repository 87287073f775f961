package service

import (
	"context"

	"github.com/godilite/driver-compliance/internal/embedtoken"
	"github.com/godilite/driver-compliance/internal/repository/models"
)

// ProfileRepository loads raw driver records. Implementations return errors
// matching models.ErrDriverNotFound or models.ErrSourceUnavailable.
type ProfileRepository interface {
	GetDriverProfile(ctx context.Context, driverID int64) (models.DriverProfile, error)
}

// TokenIssuer signs dashboard embed tokens.
type TokenIssuer interface {
	Issue(req embedtoken.Request) (embedtoken.Token, error)
}
