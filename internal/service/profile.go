package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/driver-compliance/internal/embedtoken"
	"github.com/godilite/driver-compliance/internal/repository/models"
	"go.uber.org/zap"
)

const (
	defaultFetchTimeout = 5 * time.Second
	defaultDashboardID  = 4
)

// EmbedSettings selects the dashboard each profile embeds. DriverParam, when
// set, locks the dashboard filter of that name to the requested driver.
type EmbedSettings struct {
	DashboardID int64
	TokenTTL    time.Duration
	DriverParam string
}

// ProfileService assembles the driver profile view.
type ProfileService struct {
	profiles     ProfileRepository
	issuer       TokenIssuer
	embed        EmbedSettings
	fetchTimeout time.Duration
	logger       *zap.Logger
}

// NewProfileService creates a new ProfileService instance.
func NewProfileService(profiles ProfileRepository, issuer TokenIssuer, embed EmbedSettings, fetchTimeout time.Duration, logger *zap.Logger) *ProfileService {
	if profiles == nil {
		panic("profiles must not be nil")
	}
	if issuer == nil {
		panic("issuer must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	if embed.DashboardID <= 0 {
		embed.DashboardID = defaultDashboardID
	}
	if embed.TokenTTL <= 0 {
		embed.TokenTTL = embedtoken.DefaultTTL
	}
	return &ProfileService{
		profiles:     profiles,
		issuer:       issuer,
		embed:        embed,
		fetchTimeout: fetchTimeout,
		logger:       logger.Named("profile-service"),
	}
}

// Assemble fetches one driver, derives its metrics and issues the dashboard
// embed. A token is only issued once the profile has been loaded.
func (s *ProfileService) Assemble(ctx context.Context, driverID int64) (ProfileView, error) {
	if driverID <= 0 {
		return ProfileView{}, ErrInvalidDriverID
	}

	profile, err := s.fetch(ctx, driverID)
	if err != nil {
		return ProfileView{}, err
	}

	metrics := ComputeMetrics(profile)

	token, err := s.issuer.Issue(embedtoken.Request{
		DashboardID: s.embed.DashboardID,
		Params:      s.embedParams(driverID),
		TTL:         s.embed.TokenTTL,
	})
	if err != nil {
		s.logger.Error("embed token issuance failed",
			zap.Int64("driver_id", driverID),
			zap.Int64("dashboard_id", s.embed.DashboardID),
			zap.Error(err))
		return ProfileView{}, fmt.Errorf("%w: %v", ErrEmbedConfiguration, err)
	}

	s.logger.Info("assembled driver profile",
		zap.Int64("driver_id", driverID),
		zap.Int("feedback", metrics.FeedbackCount),
		zap.Int("violations", metrics.ViolationsCount),
		zap.Time("embed_expires_at", token.ExpiresAt))

	return ProfileView{
		Driver:  profile,
		Metrics: metrics,
		Embed: Embed{
			URL:       token.URL,
			ExpiresAt: token.ExpiresAt,
		},
		ViewModes:  ViewModes(),
		ActiveView: DefaultViewMode,
	}, nil
}

type fetchResult struct {
	profile models.DriverProfile
	err     error
}

// fetch bounds the repository call by fetchTimeout even if the repository
// ignores its context.
func (s *ProfileService) fetch(ctx context.Context, driverID int64) (models.DriverProfile, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		p, err := s.profiles.GetDriverProfile(fetchCtx, driverID)
		done <- fetchResult{profile: p, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-fetchCtx.Done():
		res.err = fetchCtx.Err()
	}

	switch {
	case res.err == nil:
		if res.profile.ID != driverID {
			s.logger.Error("profile source returned a different driver",
				zap.Int64("driver_id", driverID),
				zap.Int64("returned_id", res.profile.ID))
			return models.DriverProfile{}, fmt.Errorf("%w: requested driver %d, got %d", ErrProfileUnavailable, driverID, res.profile.ID)
		}
		return res.profile, nil

	case errors.Is(res.err, models.ErrDriverNotFound):
		s.logger.Info("driver not found", zap.Int64("driver_id", driverID))
		return models.DriverProfile{}, fmt.Errorf("%w: driver %d", ErrProfileNotFound, driverID)

	case ctx.Err() != nil:
		return models.DriverProfile{}, ctx.Err()

	default:
		s.logger.Warn("profile fetch failed",
			zap.Int64("driver_id", driverID),
			zap.Duration("timeout", s.fetchTimeout),
			zap.Error(res.err))
		return models.DriverProfile{}, fmt.Errorf("%w: %v", ErrProfileUnavailable, res.err)
	}
}

func (s *ProfileService) embedParams(driverID int64) map[string]any {
	params := map[string]any{}
	if s.embed.DriverParam != "" {
		params[s.embed.DriverParam] = driverID
	}
	return params
}
