package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"fleetroute/internal/model"
)

const nbMaxBody = 4 << 20

// NextBillion is the optimization provider client. The API key is supplied
// at construction; the client never consults the process environment.
type NextBillion struct {
	BaseURL string
	Key     string
	HTTP    *http.Client
}

func NewNextBillion(key string) *NextBillion {
	return &NextBillion{
		BaseURL: "https://api.nextbillion.io",
		Key:     key,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type nbWaypoint struct {
	Location   model.LatLng `json:"location"`
	TimeWindow [2]*string   `json:"time_window"`
}

type nbVehicle struct {
	ID            *string      `json:"id"`
	StartLocation model.LatLng `json:"start_location"`
	EndLocation   model.LatLng `json:"end_location"`
	Capacity      *int         `json:"capacity"`
	TimeWindow    [2]*string   `json:"time_window"`
	MaxTasks      *int         `json:"max_tasks"`
}

type nbShipment struct {
	ID       *string    `json:"id"`
	Pickup   nbWaypoint `json:"pickup"`
	Delivery nbWaypoint `json:"delivery"`
	Quantity *int       `json:"quantity"`
	Priority *int       `json:"priority"`
}

type nbConstraints struct {
	NoGoZones           []model.Zone              `json:"no_go_zones"`
	Geofences           []model.Zone              `json:"geofences"`
	VehicleRestrictions model.VehicleRestrictions `json:"vehicle_restrictions"`
}

type nbPayload struct {
	Vehicles    []nbVehicle   `json:"vehicles"`
	Shipments   []nbShipment  `json:"shipments"`
	Constraints nbConstraints `json:"constraints"`
	Options     struct {
		ReturnGeometry bool `json:"return_geometry"`
	} `json:"options"`
}

func buildPayload(vehicles []model.Vehicle, shipments []model.Shipment, zones []model.Zone, opts model.Options) nbPayload {
	var p nbPayload
	p.Vehicles = make([]nbVehicle, 0, len(vehicles))
	for _, v := range vehicles {
		p.Vehicles = append(p.Vehicles, nbVehicle{
			ID:            v.ID,
			StartLocation: v.Start,
			EndLocation:   v.End,
			Capacity:      v.Capacity,
			TimeWindow:    [2]*string{v.Shift.Start, v.Shift.End},
			MaxTasks:      v.MaxTasks,
		})
	}
	p.Shipments = make([]nbShipment, 0, len(shipments))
	for _, s := range shipments {
		id := s.Pickup.ID
		if id == nil {
			id = s.Delivery.ID
		}
		p.Shipments = append(p.Shipments, nbShipment{
			ID:       id,
			Pickup:   nbWaypoint{Location: s.Pickup.LatLng, TimeWindow: [2]*string{s.Pickup.Window.Start, s.Pickup.Window.End}},
			Delivery: nbWaypoint{Location: s.Delivery.LatLng, TimeWindow: [2]*string{s.Delivery.Window.Start, s.Delivery.Window.End}},
			Quantity: s.Quantity,
			Priority: s.Priority,
		})
	}
	p.Constraints.NoGoZones = []model.Zone{}
	p.Constraints.Geofences = []model.Zone{}
	for _, z := range zones {
		switch z.Type {
		case model.ZoneNoGo:
			p.Constraints.NoGoZones = append(p.Constraints.NoGoZones, z)
		case model.ZoneFence:
			p.Constraints.Geofences = append(p.Constraints.Geofences, z)
		}
	}
	p.Constraints.VehicleRestrictions = opts.VehicleRestrictions
	p.Options.ReturnGeometry = true
	return p
}

// Optimize posts the payload and decodes the plan. A 401 triggers exactly
// one retry with the upper-cased auth header; no other retries occur.
func (c *NextBillion) Optimize(ctx context.Context, vehicles []model.Vehicle, shipments []model.Shipment, zones []model.Zone, opts model.Options) (model.PlanResult, error) {
	body, err := json.Marshal(buildPayload(vehicles, shipments, zones, opts))
	if err != nil {
		return model.PlanResult{}, &Error{Op: "NextBillion", Err: err}
	}
	resp, err := c.post(ctx, body, "x-api-key")
	if err != nil {
		return model.PlanResult{}, &Error{Op: "NextBillion", Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		resp, err = c.post(ctx, body, "X-API-KEY")
		if err != nil {
			return model.PlanResult{}, &Error{Op: "NextBillion", Err: err}
		}
	}
	return decodePlan(resp)
}

func (c *NextBillion) post(ctx context.Context, body []byte, keyHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/route-optimization", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	// Assigned directly so Header.Set cannot canonicalize the name away;
	// the whole point of the retry is the alternate casing on the wire.
	req.Header[keyHeader] = []string{c.Key}
	return c.HTTP.Do(req)
}

func decodePlan(resp *http.Response) (model.PlanResult, error) {
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, nbMaxBody))
	if err != nil {
		return model.PlanResult{}, &Error{Op: "NextBillion", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.PlanResult{}, &Error{Op: "NextBillion", Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	var out model.PlanResult
	if err := json.Unmarshal(b, &out); err != nil {
		return model.PlanResult{}, &Error{Op: "NextBillion", Err: err}
	}
	if out.Assignments == nil {
		out.Assignments = []model.Assignment{}
	}
	return out, nil
}
