package builtins

import (
	"context"
	"fmt"
	"strings"

	"github.com/Bharath8080/voiced/pkg/core/types"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/yahoofinance"
)

// StockPrice returns the latest market price for a ticker.
type StockPrice struct {
	client *yahoofinance.Client
}

func NewStockPrice(client *yahoofinance.Client) *StockPrice {
	return &StockPrice{client: client}
}

func (t *StockPrice) Name() string { return "get_stock_price" }

func (t *StockPrice) Description() string {
	return "Get the current stock price for a ticker symbol, e.g. AAPL or NVDA."
}

func (t *StockPrice) Schema() *types.JSONSchema {
	return &types.JSONSchema{
		Type: "object",
		Properties: map[string]*types.JSONSchema{
			"ticker": {Type: "string", Description: "The ticker symbol."},
		},
		Required: []string{"ticker"},
	}
}

func (t *StockPrice) Execute(ctx context.Context, args map[string]any) (string, error) {
	ticker, _ := args["ticker"].(string)
	q, err := t.client.GetQuote(ctx, ticker)
	if err != nil {
		return "", err
	}
	out := fmt.Sprintf("%s is trading at %.2f %s", q.Symbol, q.Price, q.Currency)
	if q.PrevClose > 0 {
		change := (q.Price - q.PrevClose) / q.PrevClose * 100
		out += fmt.Sprintf(" (%+.2f%% from previous close)", change)
	}
	return out + ".", nil
}

// CompanyInfo returns a short company profile for a ticker.
type CompanyInfo struct {
	client *yahoofinance.Client
}

func NewCompanyInfo(client *yahoofinance.Client) *CompanyInfo {
	return &CompanyInfo{client: client}
}

func (t *CompanyInfo) Name() string { return "get_company_info" }

func (t *CompanyInfo) Description() string {
	return "Get company information for a ticker symbol: name, sector, industry, and a short summary."
}

func (t *CompanyInfo) Schema() *types.JSONSchema {
	return &types.JSONSchema{
		Type: "object",
		Properties: map[string]*types.JSONSchema{
			"ticker": {Type: "string", Description: "The ticker symbol."},
		},
		Required: []string{"ticker"},
	}
}

func (t *CompanyInfo) Execute(ctx context.Context, args map[string]any) (string, error) {
	ticker, _ := args["ticker"].(string)
	p, err := t.client.GetProfile(ctx, ticker)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", p.Name, p.Symbol)
	if p.Sector != "" {
		fmt.Fprintf(&b, ", sector: %s", p.Sector)
	}
	if p.Industry != "" {
		fmt.Fprintf(&b, ", industry: %s", p.Industry)
	}
	if p.Summary != "" {
		summary := p.Summary
		if len(summary) > 600 {
			summary = summary[:600] + "..."
		}
		fmt.Fprintf(&b, ". %s", summary)
	}
	return b.String(), nil
}
