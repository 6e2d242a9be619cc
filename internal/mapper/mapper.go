// Package mapper converts header-indexed tabular records into structured
// entities. Mapping is permissive: a missing header, a short row, or an
// unparseable numeric cell yields a nil field, never an error. The same
// mapping applies whether rows came from a JSON table or a CSV upload.
package mapper

import (
	"fmt"
	"strconv"
	"strings"

	"fleetroute/internal/model"
)

func index(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[h] = i
	}
	return idx
}

func cell(idx map[string]int, row []any, name string) (any, bool) {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return nil, false
	}
	return row[i], true
}

func str(idx map[string]int, row []any, name string) *string {
	v, ok := cell(idx, row, name)
	if !ok || v == nil {
		return nil
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return nil
	}
	return &s
}

func num(idx map[string]int, row []any, name string) *float64 {
	v, ok := cell(idx, row, name)
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(v)), 64)
		if err != nil {
			return nil
		}
		return &f
	}
}

func integer(idx map[string]int, row []any, name string) *int {
	f := num(idx, row, name)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// Vehicles maps a vehicle table row-by-row.
func Vehicles(t model.Table) []model.Vehicle {
	idx := index(t.Headers)
	out := make([]model.Vehicle, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, model.Vehicle{
			ID: str(idx, row, "Id"),
			Start: model.LatLng{
				Lat: num(idx, row, "Start Lat"),
				Lng: num(idx, row, "Start Lng"),
			},
			End: model.LatLng{
				Lat: num(idx, row, "End Lat"),
				Lng: num(idx, row, "End Lng"),
			},
			Capacity: integer(idx, row, "Capacity"),
			MaxTasks: integer(idx, row, "Max Tasks"),
			Shift: model.TimeWindow{
				Start: str(idx, row, "Shift Start"),
				End:   str(idx, row, "Shift End"),
			},
			Description: str(idx, row, "Description"),
		})
	}
	return out
}

// Shipments maps a shipment table row-by-row.
func Shipments(t model.Table) []model.Shipment {
	idx := index(t.Headers)
	out := make([]model.Shipment, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, model.Shipment{
			Pickup: model.Waypoint{
				ID: str(idx, row, "Pickup Id"),
				LatLng: model.LatLng{
					Lat: num(idx, row, "Pickup Location Lat"),
					Lng: num(idx, row, "Pickup Location Lng"),
				},
				Window: model.TimeWindow{
					Start: str(idx, row, "Pickup Start Time"),
					End:   str(idx, row, "Pickup End Time"),
				},
			},
			Delivery: model.Waypoint{
				ID: str(idx, row, "Delivery Id"),
				LatLng: model.LatLng{
					Lat: num(idx, row, "Delivery Location Lat"),
					Lng: num(idx, row, "Delivery Location Lng"),
				},
				Window: model.TimeWindow{
					Start: str(idx, row, "Delivery Start Time"),
					End:   str(idx, row, "Delivery End Time"),
				},
			},
			Quantity:    integer(idx, row, "Quantity"),
			Priority:    integer(idx, row, "Priority"),
			Description: str(idx, row, "Description"),
		})
	}
	return out
}
