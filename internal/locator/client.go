// internal/locator/client.go
package locator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/warroom/extension/internal/session"
	"github.com/warroom/extension/pkg/core"
)

// DefaultURL is the IP geolocation endpoint.
const DefaultURL = "https://ip.guide/"

// DefaultOrigin is used when the lookup fails and there are no targets to
// borrow a position from.
var DefaultOrigin = core.LonLat{Lon: -74.0060, Lat: 40.7128}

// ErrNoLocation is returned when the endpoint answers without a location.
var ErrNoLocation = errors.New("no location in response")

// Location is the part of the geolocation response the war room uses.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
}

type lookupResponse struct {
	Location *Location `json:"location"`
}

// Client looks up the caller's approximate position from its public IP.
type Client struct {
	url        string
	httpClient *http.Client
}

// New creates a new locator client.
func New(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Locate queries the endpoint once.
func (c *Client) Locate(ctx context.Context) (Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Location{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("location request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("location lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Location{}, fmt.Errorf("failed to read response: %w", err)
	}

	var decoded lookupResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Location{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if decoded.Location == nil {
		return Location{}, ErrNoLocation
	}
	return *decoded.Location, nil
}

// ResolveOrigin picks the player origin. A successful lookup wins. Otherwise
// a random entry of targets stands in for the player ("PROXY"), and with no
// targets the fixed default is used. The lookup error, if any, is returned
// alongside the fallback origin so callers can log it.
func ResolveOrigin(ctx context.Context, c *Client, targets []core.LonLat, intn func(int) int) (session.Origin, error) {
	var lookupErr error
	if c != nil {
		loc, err := c.Locate(ctx)
		if err == nil {
			return session.Origin{
				LonLat: core.LonLat{Lon: loc.Longitude, Lat: loc.Latitude},
				Label:  session.OriginLocated,
				City:   describe(loc),
			}, nil
		}
		lookupErr = err
	}

	if len(targets) > 0 {
		return session.Origin{
			LonLat: targets[intn(len(targets))],
			Label:  session.OriginProxy,
		}, lookupErr
	}

	return session.Origin{
		LonLat: DefaultOrigin,
		Label:  session.OriginDefault,
	}, lookupErr
}

func describe(loc Location) string {
	switch {
	case loc.City != "" && loc.Country != "":
		return strings.ToUpper(loc.City) + ", " + loc.Country
	case loc.City != "":
		return strings.ToUpper(loc.City)
	default:
		return loc.Country
	}
}
