// Package serper is a thin client for the Serper Google Shopping API.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://google.serper.dev"

// maxProducts is Serper's cap on shopping results per request.
const maxProducts = 40

// Product is one shopping result.
type Product struct {
	Title       string
	Price       string
	Source      string
	Rating      float64
	RatingCount int
	Link        string
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

// ShoppingSearch returns up to num products matching the query.
func (c *Client) ShoppingSearch(ctx context.Context, query string, num int) ([]Product, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("serper api key is not configured")
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if num <= 0 || num > maxProducts {
		num = maxProducts
	}

	body, err := json.Marshal(map[string]any{
		"q":   query,
		"num": num,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shopping", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, fmt.Errorf("serper error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var decoded struct {
		Shopping []struct {
			Title       string  `json:"title"`
			Price       string  `json:"price"`
			Source      string  `json:"source"`
			Rating      float64 `json:"rating"`
			RatingCount int     `json:"ratingCount"`
			Link        string  `json:"link"`
		} `json:"shopping"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]Product, 0, len(decoded.Shopping))
	for _, p := range decoded.Shopping {
		out = append(out, Product{
			Title:       p.Title,
			Price:       p.Price,
			Source:      p.Source,
			Rating:      p.Rating,
			RatingCount: p.RatingCount,
			Link:        p.Link,
		})
	}
	return out, nil
}
