package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/godilite/driver-compliance/internal/repository/models"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxProfileBytes    = 4 << 20
)

// HTTPProfileRepository reads profiles from the driver records API:
// GET {baseURL}/api/drivers/{id}/profile.
type HTTPProfileRepository struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProfileRepository(baseURL string, client *http.Client) (*HTTPProfileRepository, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid profile api base url %q", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPProfileRepository{
		baseURL: strings.TrimRight(u.String(), "/"),
		client:  client,
	}, nil
}

// GetDriverProfile fetches one driver. 404 maps to ErrDriverNotFound; any
// other failure maps to ErrSourceUnavailable.
func (r *HTTPProfileRepository) GetDriverProfile(ctx context.Context, driverID int64) (models.DriverProfile, error) {
	endpoint := r.baseURL + "/api/drivers/" + strconv.FormatInt(driverID, 10) + "/profile"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.DriverProfile{}, fmt.Errorf("%w: build request: %v", models.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.DriverProfile{}, fmt.Errorf("%w: %w", models.ErrSourceUnavailable, ctxErr)
		}
		return models.DriverProfile{}, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProfileBytes))
		return models.DriverProfile{}, fmt.Errorf("%w: driver %d", models.ErrDriverNotFound, driverID)
	case resp.StatusCode != http.StatusOK:
		return models.DriverProfile{}, fmt.Errorf("%w: %s", models.ErrSourceUnavailable, upstreamError(resp))
	}

	var profile models.DriverProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes)).Decode(&profile); err != nil {
		return models.DriverProfile{}, fmt.Errorf("%w: decode profile: %v", models.ErrSourceUnavailable, err)
	}
	if err := profile.Validate(); err != nil {
		return models.DriverProfile{}, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}
	profile.Normalize()

	return profile, nil
}

// upstreamError describes a non-200 answer, including the {"error": "..."}
// body the records API sends when it has one.
func upstreamError(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	msg := "status " + strconv.Itoa(resp.StatusCode)
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil && body.Error != "" {
		msg += ": " + body.Error
	}
	return msg
}
