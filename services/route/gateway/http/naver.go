package gateway_http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	httpclient "github.com/piresc/navieta/internal/pkg/http"
	"github.com/piresc/navieta/internal/pkg/logger"
	"github.com/piresc/navieta/internal/pkg/models"
)

const (
	directionsEndpoint = "/map-direction/v1/driving"
	geocodeEndpoint    = "/map-geocode/v2/geocode"
	revGeocodeEndpoint = "/map-reversegeocode/v2/gc"
)

// NaverClient talks to the Naver Maps Directions, Geocoding and
// Reverse-Geocoding APIs. Exactly one provider request per method call;
// rescheduling on failure is the poller's job, signalled through the
// classified error it returns.
type NaverClient struct {
	client *httpclient.KeyPairClient
}

// NewNaverClient creates a provider client from configuration.
func NewNaverClient(cfg models.NaverConfig) *NaverClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	return &NaverClient{
		client: httpclient.NewKeyPairClient(cfg.BaseURL, cfg.APIKeyID, cfg.APIKey, timeout),
	}
}

// directionsResponse mirrors the driving API body. Fares are pointers:
// the provider omits them on some road classes and the engine surfaces
// absence instead of recomputing locally.
type directionsResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Route   map[string][]struct {
		Summary struct {
			Duration  int64 `json:"duration"` // milliseconds
			Distance  int   `json:"distance"` // meters
			TollFare  *int  `json:"tollFare"`
			TaxiFare  *int  `json:"taxiFare"`
			FuelPrice *int  `json:"fuelPrice"`
		} `json:"summary"`
	} `json:"route"`
}

// FetchRoute requests a driving route through the given point sequence.
// The provider enforces a non-optimized waypoint order, so the sequence is
// encoded exactly as received.
func (n *NaverClient) FetchRoute(ctx context.Context, points []models.ResolvedPoint, priority models.Priority, avoid []models.AvoidOption) (*models.RouteResult, error) {
	if len(points) < 2 {
		return nil, models.NewValidationError("route needs at least an origin and a destination")
	}

	option := buildOptionToken(priority, avoid)

	params := url.Values{}
	params.Set("start", points[0].Coordinate.String())
	params.Set("goal", points[len(points)-1].Coordinate.String())
	params.Set("option", option)

	if len(points) > 2 {
		coords := make([]string, 0, len(points)-2)
		for _, p := range points[1 : len(points)-1] {
			coords = append(coords, p.Coordinate.String())
		}
		params.Set("waypoints", strings.Join(coords, "|"))
	}

	resp, err := n.client.Get(ctx, directionsEndpoint, params)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var body directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, models.NewClassifiedError(models.ErrTransient,
			fmt.Errorf("failed to decode directions response: %w", err))
	}

	if body.Code != 0 {
		return nil, models.NewClassifiedError(models.ErrNoRoute,
			fmt.Errorf("provider code %d: %s", body.Code, body.Message))
	}

	routes := body.Route[option]
	if len(routes) == 0 {
		// The summary is keyed by the bare priority token when avoid
		// options were appended.
		routes = body.Route[priority.ProviderOption()]
	}
	if len(routes) == 0 {
		return nil, models.NewClassifiedError(models.ErrNoRoute,
			errors.New("provider returned no route"))
	}

	summary := routes[0].Summary
	return &models.RouteResult{
		// Duration arrives in milliseconds; round to the nearest second.
		DurationSeconds: int((summary.Duration + 500) / 1000),
		DistanceMeters:  summary.Distance,
		TollFare:        summary.TollFare,
		TaxiFare:        summary.TaxiFare,
		FuelPrice:       summary.FuelPrice,
		Priority:        priority,
		FetchedAt:       time.Now().UTC(),
	}, nil
}

// buildOptionToken joins the priority token with the avoid tokens,
// colon-separated per the provider convention.
func buildOptionToken(priority models.Priority, avoid []models.AvoidOption) string {
	tokens := []string{priority.ProviderOption()}
	for _, a := range avoid {
		if t := a.ProviderOption(); t != "" {
			tokens = append(tokens, t)
		}
	}
	return strings.Join(tokens, ":")
}

type geocodeResponse struct {
	Status    string `json:"status"`
	Addresses []struct {
		X string `json:"x"` // longitude
		Y string `json:"y"` // latitude
	} `json:"addresses"`
}

// Geocode resolves a free-text address to a coordinate.
func (n *NaverClient) Geocode(ctx context.Context, query string) (models.Coordinate, error) {
	params := url.Values{}
	params.Set("query", query)

	resp, err := n.client.Get(ctx, geocodeEndpoint, params)
	if err != nil {
		return models.Coordinate{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		if models.IsKind(err, models.ErrNoRoute) {
			// Geocoding 4xx means the query was unresolvable, not a
			// missing path.
			return models.Coordinate{}, models.NewGeocodeError(
				fmt.Sprintf("provider rejected geocode query (status %d)", resp.StatusCode))
		}
		return models.Coordinate{}, err
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Coordinate{}, models.NewClassifiedError(models.ErrTransient,
			fmt.Errorf("failed to decode geocode response: %w", err))
	}

	if len(body.Addresses) == 0 {
		return models.Coordinate{}, models.NewGeocodeError(
			fmt.Sprintf("no results for address %q", query))
	}

	lon, errLon := strconv.ParseFloat(body.Addresses[0].X, 64)
	lat, errLat := strconv.ParseFloat(body.Addresses[0].Y, 64)
	if errLon != nil || errLat != nil {
		return models.Coordinate{}, models.NewGeocodeError(
			fmt.Sprintf("malformed coordinates in geocode result for %q", query))
	}

	coord := models.Coordinate{Longitude: lon, Latitude: lat}
	logger.Debug("Geocoded address",
		logger.String("query", query),
		logger.Float64("lon", coord.Longitude),
		logger.Float64("lat", coord.Latitude))
	return coord, nil
}

type revGeocodeResponse struct {
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Results []struct {
		Name   string `json:"name"`
		Region struct {
			Area1 struct {
				Name string `json:"name"`
			} `json:"area1"`
			Area2 struct {
				Name string `json:"name"`
			} `json:"area2"`
			Area3 struct {
				Name string `json:"name"`
			} `json:"area3"`
		} `json:"region"`
		Land struct {
			Name    string `json:"name"`
			Number1 string `json:"number1"`
			Number2 string `json:"number2"`
		} `json:"land"`
	} `json:"results"`
}

// ReverseGeocode resolves a coordinate to a road address, falling back to
// the land address when no road address exists at the point.
func (n *NaverClient) ReverseGeocode(ctx context.Context, coord models.Coordinate) (string, error) {
	params := url.Values{}
	params.Set("coords", coord.String())
	params.Set("output", "json")
	params.Set("orders", "roadaddr,addr")

	resp, err := n.client.Get(ctx, revGeocodeEndpoint, params)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return "", err
	}

	var body revGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", models.NewClassifiedError(models.ErrTransient,
			fmt.Errorf("failed to decode reverse geocode response: %w", err))
	}

	if body.Status.Code != 0 {
		return "", models.NewGeocodeError(
			fmt.Sprintf("reverse geocode code %d: %s", body.Status.Code, body.Status.Message))
	}

	var road, land string
	for _, result := range body.Results {
		parts := make([]string, 0, 5)
		for _, area := range []string{result.Region.Area1.Name, result.Region.Area2.Name, result.Region.Area3.Name} {
			if area != "" {
				parts = append(parts, area)
			}
		}
		switch result.Name {
		case "roadaddr":
			if result.Land.Name != "" {
				parts = append(parts, result.Land.Name)
			}
			if result.Land.Number1 != "" {
				parts = append(parts, result.Land.Number1)
			}
			road = strings.Join(parts, " ")
		case "addr":
			if result.Land.Number1 != "" {
				number := result.Land.Number1
				if result.Land.Number2 != "" {
					number += "-" + result.Land.Number2
				}
				parts = append(parts, number)
			}
			land = strings.Join(parts, " ")
		}
	}

	if road != "" {
		return road, nil
	}
	if land != "" {
		return land, nil
	}
	return "", models.NewGeocodeError("no address at coordinate")
}

// classifyStatus maps an HTTP status to the error taxonomy. 2xx maps to nil.
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == nethttp.StatusUnauthorized || status == nethttp.StatusForbidden:
		return models.NewClassifiedError(models.ErrAuth,
			fmt.Errorf("provider rejected credentials (status %d)", status))
	case status == nethttp.StatusTooManyRequests:
		return models.NewClassifiedError(models.ErrRateLimited,
			errors.New("provider rate limit exceeded"))
	case status >= 400 && status < 500:
		return models.NewClassifiedError(models.ErrNoRoute,
			fmt.Errorf("provider rejected request (status %d)", status))
	default:
		return models.NewClassifiedError(models.ErrTransient,
			fmt.Errorf("provider error (status %d)", status))
	}
}

// classifyTransportError maps network-level failures: everything, including
// timeouts and cancellation, retries on the next scheduled poll.
func classifyTransportError(err error) error {
	return models.NewClassifiedError(models.ErrTransient, err)
}
