package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"linklock/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Resolution is the classifier output for a single visitor.
type Resolution struct {
	Device  Device `json:"device"`
	Country string `json:"country"`
	Tier    Tier   `json:"tier"`
}

// Resolver classifies visitors by device signature and geolocated country.
type Resolver struct {
	client          *http.Client
	endpoint        string
	fallbackCountry string
}

type ResolverParams struct {
	fx.In
	Cfg *config.Config
}

func NewResolver(p ResolverParams) *Resolver {
	return &Resolver{
		client:          &http.Client{Timeout: p.Cfg.Geo.Timeout},
		endpoint:        p.Cfg.Geo.Endpoint,
		fallbackCountry: p.Cfg.Geo.FallbackCountry,
	}
}

// Resolve classifies the visitor. Geolocation failures degrade to the
// fallback country; a visit is never blocked on the lookup service.
func (r *Resolver) Resolve(ctx context.Context, userAgent, ip string) Resolution {
	device := ClassifyDevice(userAgent)

	country, err := r.lookupCountry(ctx, ip)
	if err != nil {
		zap.L().Warn("geo lookup failed, using fallback country",
			zap.String("ip", ip),
			zap.String("fallback", r.fallbackCountry),
			zap.Error(err),
		)
		country = r.fallbackCountry
	}

	return Resolution{
		Device:  device,
		Country: country,
		Tier:    ClassifyTier(country),
	}
}

type geoResponse struct {
	Country string `json:"country"`
}

func (r *Resolver) lookupCountry(ctx context.Context, ip string) (string, error) {
	url := fmt.Sprintf("%s/json/", r.endpoint)
	if ip != "" {
		url = fmt.Sprintf("%s/%s/json/", r.endpoint, ip)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geo endpoint returned %d", resp.StatusCode)
	}

	var body geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	if body.Country == "" {
		return "", fmt.Errorf("geo endpoint returned empty country")
	}

	return body.Country, nil
}
