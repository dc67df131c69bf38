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

// Climate model used for monthly aggregates.
const climateModel = "EC_Earth3P_HR"

// Aggregates are computed over a fixed reference year so a month always
// maps to the same date window.
const climateYear = 2024

// WeatherClient talks to the Open-Meteo geocoding and climate APIs.
type WeatherClient struct {
	geocodingURL string
	climateURL   string
	http         *http.Client
}

func NewWeatherClient(cfg config.WeatherConfig) *WeatherClient {
	return &WeatherClient{
		geocodingURL: cfg.GeocodingURL,
		climateURL:   cfg.ClimateURL,
		http:         &http.Client{Timeout: 15 * time.Second},
	}
}

// GeoResult is a resolved city location.
type GeoResult struct {
	Name      string
	Country   string
	Latitude  float64
	Longitude float64
}

type geoCandidate struct {
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

type geocodingResponse struct {
	Results []geoCandidate `json:"results"`
}

// Geocode resolves a city name to coordinates. When country is non-empty,
// candidates matching it (by name or ISO code) are preferred.
func (c *WeatherClient) Geocode(ctx context.Context, city, country string) (*GeoResult, error) {
	params := url.Values{}
	params.Set("name", city)
	params.Set("count", "5")
	params.Set("language", "en")
	params.Set("format", "json")

	var resp geocodingResponse
	if err := c.getJSON(ctx, c.geocodingURL+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", city, err)
	}

	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("city '%s' not found. Please check the spelling", city)
	}

	results := resp.Results
	if country != "" {
		countryLower := strings.ToLower(country)
		var filtered []geoCandidate
		for _, r := range results {
			if strings.ToLower(r.Country) == countryLower || strings.ToLower(r.CountryCode) == countryLower {
				filtered = append(filtered, r)
			}
		}
		if len(filtered) > 0 {
			results = filtered
		}
	}

	best := results[0]
	return &GeoResult{
		Name:      best.Name,
		Country:   best.Country,
		Latitude:  best.Latitude,
		Longitude: best.Longitude,
	}, nil
}

type climateResponse struct {
	Daily struct {
		TemperatureMean  []*float64 `json:"temperature_2m_mean"`
		TemperatureMax   []*float64 `json:"temperature_2m_max"`
		TemperatureMin   []*float64 `json:"temperature_2m_min"`
		PrecipitationSum []*float64 `json:"precipitation_sum"`
		SnowfallSum      []*float64 `json:"snowfall_sum"`
	} `json:"daily"`
}

// MonthlyClimate returns a human-readable climate summary for a city in a
// given month (1-12). Lookup failures come back as descriptive strings per
// the tool contract, so the model can react to them like any other result.
func (c *WeatherClient) MonthlyClimate(ctx context.Context, city, country string, month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("Invalid month %d: expected a number from 1 (January) to 12 (December).", month)
	}

	geo, err := c.Geocode(ctx, city, country)
	if err != nil {
		return err.Error()
	}

	firstDay := time.Date(climateYear, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstDay.AddDate(0, 1, -1)

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%g", geo.Latitude))
	params.Set("longitude", fmt.Sprintf("%g", geo.Longitude))
	params.Set("start_date", firstDay.Format("2006-01-02"))
	params.Set("end_date", lastDay.Format("2006-01-02"))
	params.Set("models", climateModel)
	params.Set("daily", "temperature_2m_mean,temperature_2m_max,temperature_2m_min,precipitation_sum,snowfall_sum")

	var resp climateResponse
	if err := c.getJSON(ctx, c.climateURL+"?"+params.Encode(), &resp); err != nil {
		return fmt.Sprintf("Weather API error for %s: %v", city, err)
	}

	avgTemp := formatRounded(mean(resp.Daily.TemperatureMean))
	maxTemp := formatRounded(maxOf(resp.Daily.TemperatureMax))
	minTemp := formatRounded(minOf(resp.Daily.TemperatureMin))
	totalPrecip := formatRounded(sum(resp.Daily.PrecipitationSum))
	totalSnow := formatRounded(sum(resp.Daily.SnowfallSum))

	return fmt.Sprintf(
		"Climate data for %s, %s in %s:\n"+
			"  Average Temperature: %s°C\n"+
			"  Max Temperature: %s°C\n"+
			"  Min Temperature: %s°C\n"+
			"  Total Precipitation: %s mm\n"+
			"  Total Snowfall: %s cm\n",
		geo.Name, geo.Country, time.Month(month).String(),
		avgTemp, maxTemp, minTemp, totalPrecip, totalSnow)
}

func (c *WeatherClient) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// mean, maxOf, minOf, and sum skip null entries the climate API emits for
// days without data; they return ok=false when no values remain.

func mean(values []*float64) (float64, bool) {
	var total float64
	var n int
	for _, v := range values {
		if v != nil {
			total += *v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

func maxOf(values []*float64) (float64, bool) {
	var best float64
	found := false
	for _, v := range values {
		if v == nil {
			continue
		}
		if !found || *v > best {
			best = *v
			found = true
		}
	}
	return best, found
}

func minOf(values []*float64) (float64, bool) {
	var best float64
	found := false
	for _, v := range values {
		if v == nil {
			continue
		}
		if !found || *v < best {
			best = *v
			found = true
		}
	}
	return best, found
}

func sum(values []*float64) (float64, bool) {
	var total float64
	found := false
	for _, v := range values {
		if v != nil {
			total += *v
			found = true
		}
	}
	return total, found
}

func formatRounded(value float64, ok bool) string {
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", value)
}
