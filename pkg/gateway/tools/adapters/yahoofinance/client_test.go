package yahoofinance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/NVDA" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"chart": {"result": [{"meta": {
				"symbol": "NVDA", "currency": "USD",
				"regularMarketPrice": 181.77, "chartPreviousClose": 179.2
			}}]}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	q, err := c.GetQuote(context.Background(), "nvda")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if q.Symbol != "NVDA" || q.Price != 181.77 || q.Currency != "USD" {
		t.Errorf("quote = %+v", q)
	}
}

func TestGetQuoteUnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": null, "error": {"description": "No data found"}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	_, err := c.GetQuote(context.Background(), "NOPE")
	if err == nil || !strings.Contains(err.Error(), "No data found") {
		t.Errorf("err = %v", err)
	}
}

func TestGetProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v10/finance/quoteSummary/AAPL") {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"quoteSummary": {"result": [{
				"assetProfile": {
					"sector": "Technology", "industry": "Consumer Electronics",
					"longBusinessSummary": "Apple designs smartphones.",
					"website": "https://www.apple.com"
				},
				"price": {"longName": "Apple Inc."}
			}]}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	p, err := c.GetProfile(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.Name != "Apple Inc." || p.Sector != "Technology" {
		t.Errorf("profile = %+v", p)
	}
}
