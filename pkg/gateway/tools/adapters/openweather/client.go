package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://api.openweathermap.org"

// Observation is the current weather at one location.
type Observation struct {
	City        string
	Country     string
	Condition   string
	TempC       float64
	FeelsLikeC  float64
	Humidity    int
	WindSpeedMS float64
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL string, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.apiKey) != ""
}

// Current fetches the current weather for a city name.
func (c *Client) Current(ctx context.Context, city string) (*Observation, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("openweathermap api key is not configured")
	}
	if strings.TrimSpace(city) == "" {
		return nil, fmt.Errorf("city is required")
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, fmt.Errorf("openweathermap error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var decoded struct {
		Name    string `json:"name"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Sys struct {
			Country string `json:"country"`
		} `json:"sys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	obs := &Observation{
		City:        decoded.Name,
		Country:     decoded.Sys.Country,
		TempC:       decoded.Main.Temp,
		FeelsLikeC:  decoded.Main.FeelsLike,
		Humidity:    decoded.Main.Humidity,
		WindSpeedMS: decoded.Wind.Speed,
	}
	if len(decoded.Weather) > 0 {
		obs.Condition = decoded.Weather[0].Description
	}
	return obs, nil
}
