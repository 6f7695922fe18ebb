package yahoofinance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Quote is the latest market price for a ticker.
type Quote struct {
	Symbol    string
	Currency  string
	Price     float64
	PrevClose float64
}

// Profile is basic company information for a ticker.
type Profile struct {
	Symbol   string
	Name     string
	Sector   string
	Industry string
	Summary  string
	Website  string
}

// Client reads public Yahoo Finance endpoints. No API key is needed.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return fmt.Errorf("yahoo finance error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetQuote returns the latest price for a ticker via the chart
// endpoint.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	var decoded struct {
		Chart struct {
			Result []struct {
				Meta struct {
					Symbol             string  `json:"symbol"`
					Currency           string  `json:"currency"`
					RegularMarketPrice float64 `json:"regularMarketPrice"`
					PreviousClose      float64 `json:"chartPreviousClose"`
				} `json:"meta"`
			} `json:"result"`
			Error *struct {
				Description string `json:"description"`
			} `json:"error"`
		} `json:"chart"`
	}
	path := "/v8/finance/chart/" + url.PathEscape(symbol) + "?range=1d&interval=1d"
	if err := c.get(ctx, path, &decoded); err != nil {
		return nil, err
	}
	if decoded.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo finance: %s", decoded.Chart.Error.Description)
	}
	if len(decoded.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data for symbol %q", symbol)
	}

	meta := decoded.Chart.Result[0].Meta
	return &Quote{
		Symbol:    meta.Symbol,
		Currency:  meta.Currency,
		Price:     meta.RegularMarketPrice,
		PrevClose: meta.PreviousClose,
	}, nil
}

// GetProfile returns company information for a ticker.
func (c *Client) GetProfile(ctx context.Context, symbol string) (*Profile, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	var decoded struct {
		QuoteSummary struct {
			Result []struct {
				AssetProfile struct {
					Sector          string `json:"sector"`
					Industry        string `json:"industry"`
					BusinessSummary string `json:"longBusinessSummary"`
					Website         string `json:"website"`
				} `json:"assetProfile"`
				Price struct {
					LongName string `json:"longName"`
				} `json:"price"`
			} `json:"result"`
			Error *struct {
				Description string `json:"description"`
			} `json:"error"`
		} `json:"quoteSummary"`
	}
	path := "/v10/finance/quoteSummary/" + url.PathEscape(symbol) + "?modules=assetProfile%2Cprice"
	if err := c.get(ctx, path, &decoded); err != nil {
		return nil, err
	}
	if decoded.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo finance: %s", decoded.QuoteSummary.Error.Description)
	}
	if len(decoded.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("no data for symbol %q", symbol)
	}

	r := decoded.QuoteSummary.Result[0]
	return &Profile{
		Symbol:   symbol,
		Name:     r.Price.LongName,
		Sector:   r.AssetProfile.Sector,
		Industry: r.AssetProfile.Industry,
		Summary:  r.AssetProfile.BusinessSummary,
		Website:  r.AssetProfile.Website,
	}, nil
}
