package gateway_http

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/url"
	"time"

	"github.com/piresc/navieta/internal/pkg/models"
)

// HassClient reads entity state from a Home Assistant instance over its
// REST API. Positions are never cached: the whole point of entity-based
// route endpoints is that the entity moves.
type HassClient struct {
	baseURL string
	token   string
	client  *nethttp.Client
}

// NewHassClient creates a Home Assistant client from configuration.
func NewHassClient(cfg models.HomeAssistantConfig) *HassClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HassClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client: &nethttp.Client{
			Timeout: timeout,
		},
	}
}

type entityState struct {
	EntityID   string                 `json:"entity_id"`
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes"`
}

// EntityPosition returns the entity's current coordinate and friendly name.
// Every failure mode here is the entity's problem from the engine's point
// of view, so everything classifies as EntityUnavailable and retries on the
// next poll.
func (h *HassClient) EntityPosition(ctx context.Context, entityID string) (models.Coordinate, string, error) {
	endpoint := fmt.Sprintf("%s/api/states/%s", h.baseURL, url.PathEscape(entityID))

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, endpoint, nil)
	if err != nil {
		return models.Coordinate{}, "", models.NewEntityUnavailableError(entityID, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return models.Coordinate{}, "", models.NewEntityUnavailableError(entityID,
			fmt.Sprintf("state request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == nethttp.StatusNotFound {
		return models.Coordinate{}, "", models.NewEntityUnavailableError(entityID, "entity does not exist")
	}
	if resp.StatusCode != nethttp.StatusOK {
		return models.Coordinate{}, "", models.NewEntityUnavailableError(entityID,
			fmt.Sprintf("state request returned status %d", resp.StatusCode))
	}

	var state entityState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return models.Coordinate{}, "", models.NewEntityUnavailableError(entityID,
			fmt.Sprintf("malformed state payload: %v", err))
	}

	if state.State == "unknown" || state.State == "unavailable" {
		return models.Coordinate{}, "", models.NewEntityUnavailableError(entityID,
			fmt.Sprintf("entity state is %q", state.State))
	}

	lat, latOK := numericAttribute(state.Attributes, "latitude")
	lon, lonOK := numericAttribute(state.Attributes, "longitude")
	if !latOK || !lonOK {
		return models.Coordinate{}, "", models.NewEntityUnavailableError(entityID, "no position attributes")
	}

	coord := models.Coordinate{Longitude: lon, Latitude: lat}
	if !coord.Valid() {
		return models.Coordinate{}, "", models.NewEntityUnavailableError(entityID,
			fmt.Sprintf("position out of range: lon=%g lat=%g", lon, lat))
	}

	friendlyName, _ := state.Attributes["friendly_name"].(string)
	return coord, friendlyName, nil
}

// numericAttribute reads a float attribute, accepting the JSON number form
// and the string form some integrations report.
func numericAttribute(attrs map[string]interface{}, key string) (float64, bool) {
	switch v := attrs[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
