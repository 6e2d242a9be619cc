package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fleetroute/internal/model"
)

// TomTom is the routing and geocoding provider client.
type TomTom struct {
	BaseURL string
	Key     string
	HTTP    *http.Client
}

func NewTomTom(key string) *TomTom {
	return &TomTom{
		BaseURL: "https://api.tomtom.com",
		Key:     key,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Segment requests one routed leg. The path is the provider's
// "lat,lng:lat,lng" form; traffic is always on.
func (c *TomTom) Segment(ctx context.Context, from, to model.GeoPoint, avoidAreas string, vehicleParams url.Values) (model.RouteSegment, error) {
	path := fmt.Sprintf("%g,%g:%g,%g", from.Lat, from.Lng, to.Lat, to.Lng)
	q := url.Values{}
	q.Set("key", c.Key)
	q.Set("traffic", "true")
	if avoidAreas != "" {
		q.Set("avoidAreas", avoidAreas)
	}
	for k, vs := range vehicleParams {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u := c.BaseURL + "/routing/1/calculateRoute/" + path + "/json?" + q.Encode()

	body, err := c.get(ctx, u, "TomTom routing")
	if err != nil {
		return model.RouteSegment{}, err
	}
	var data struct {
		Routes []struct {
			Summary struct {
				LengthInMeters      float64 `json:"lengthInMeters"`
				TravelTimeInSeconds float64 `json:"travelTimeInSeconds"`
			} `json:"summary"`
			Legs []struct {
				Points []struct {
					Latitude  float64 `json:"latitude"`
					Longitude float64 `json:"longitude"`
				} `json:"points"`
			} `json:"legs"`
		} `json:"routes"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return model.RouteSegment{}, &Error{Op: "TomTom routing", Err: err}
	}
	var seg model.RouteSegment
	if len(data.Routes) > 0 {
		r0 := data.Routes[0]
		seg.DistanceM = r0.Summary.LengthInMeters
		seg.TimeS = r0.Summary.TravelTimeInSeconds
		for _, leg := range r0.Legs {
			for _, p := range leg.Points {
				seg.Coordinates = append(seg.Coordinates, []float64{p.Longitude, p.Latitude})
			}
		}
	}
	return seg, nil
}

// Geocode resolves a free-text address to a coordinate, optionally
// restricted to a country set.
func (c *TomTom) Geocode(ctx context.Context, address, country string) (model.GeoPoint, error) {
	q := url.Values{}
	q.Set("key", c.Key)
	q.Set("limit", "1")
	if country != "" {
		q.Set("countrySet", country)
	}
	u := c.BaseURL + "/search/2/geocode/" + url.PathEscape(address) + ".json?" + q.Encode()

	body, err := c.get(ctx, u, "TomTom geocode")
	if err != nil {
		return model.GeoPoint{}, err
	}
	var data struct {
		Results []struct {
			Position struct {
				Lat float64 `json:"lat"`
				Lon float64 `json:"lon"`
			} `json:"position"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return model.GeoPoint{}, &Error{Op: "TomTom geocode", Err: err}
	}
	if len(data.Results) == 0 {
		return model.GeoPoint{}, fmt.Errorf("no geocode result for %q", address)
	}
	return model.GeoPoint{Lat: data.Results[0].Position.Lat, Lng: data.Results[0].Position.Lon}, nil
}

func (c *TomTom) get(ctx context.Context, u, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, nbMaxBody))
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return b, nil
}
