package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wayfarer.app/concierge/core/config"
)

const (
	placesAPIVersion  = "2025-06-17"
	placesRadiusM     = 30000
	placesResultLimit = 5
)

// PlacesClient searches points of interest via the Foursquare Places API.
// City names are resolved to coordinates through the shared geocoder.
type PlacesClient struct {
	apiKey  string
	baseURL string
	geo     *WeatherClient
	http    *http.Client
}

func NewPlacesClient(cfg config.PlacesConfig, geo *WeatherClient) *PlacesClient {
	return &PlacesClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		geo:     geo,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type placesResponse struct {
	Results []struct {
		Name       string `json:"name"`
		Categories []struct {
			Name string `json:"name"`
		} `json:"categories"`
		Location struct {
			FormattedAddress string `json:"formatted_address"`
		} `json:"location"`
	} `json:"results"`
}

// Search returns a ranked, newline-formatted list of places for a single
// category in a city. All failures are encoded as descriptive strings per
// the tool contract.
func (c *PlacesClient) Search(ctx context.Context, city, category string) string {
	if c.apiKey == "" {
		return "Error: FOURSQUARE_API_KEY is not set. Please add it to your .env file."
	}

	geo, err := c.geo.Geocode(ctx, city, "")
	if err != nil {
		return err.Error()
	}

	params := url.Values{}
	params.Set("query", category)
	params.Set("ll", fmt.Sprintf("%g,%g", geo.Latitude, geo.Longitude))
	params.Set("radius", fmt.Sprintf("%d", placesRadiusM))
	params.Set("limit", fmt.Sprintf("%d", placesResultLimit))
	params.Set("sort", "POPULARITY")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Sprintf("Foursquare API error: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Places-Api-Version", placesAPIVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Sprintf("Foursquare API error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Sprintf("Foursquare API error: unexpected status %d", resp.StatusCode)
	}

	var data placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return fmt.Sprintf("Foursquare API error: %v", err)
	}

	if len(data.Results) == 0 {
		return fmt.Sprintf("No %s found in %s. Try a different category or nearby city.", category, city)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %s in %s, %s:\n", category, geo.Name, geo.Country)
	for i, place := range data.Results {
		name := place.Name
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&b, "\n  %d. %s\n", i+1, name)

		var cats []string
		for _, cat := range place.Categories {
			if cat.Name != "" {
				cats = append(cats, cat.Name)
			}
		}
		if len(cats) > 0 {
			fmt.Fprintf(&b, "     Category: %s\n", strings.Join(cats, ", "))
		}

		addr := place.Location.FormattedAddress
		if addr == "" {
			addr = "Address not available"
		}
		fmt.Fprintf(&b, "     Address: %s", addr)
	}

	return b.String()
}
