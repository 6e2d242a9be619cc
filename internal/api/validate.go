package api

import (
	"fmt"
	"net/url"

	"fleetroute/internal/model"
)

func validateOptimizeRequest(req *model.OptimizeRequest) error {
	for i, z := range req.Zones {
		if err := validateZone(z); err != nil {
			return fmt.Errorf("zones[%d]: %w", i, err)
		}
	}
	return nil
}

func validateZone(z model.Zone) error {
	if z.Type != model.ZoneNoGo && z.Type != model.ZoneFence {
		return fmt.Errorf("type must be %q or %q", model.ZoneNoGo, model.ZoneFence)
	}
	return nil
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("url host is required")
	}
	return nil
}
