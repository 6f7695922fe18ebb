package builtins

import (
	"context"
	"fmt"
	"strings"

	"github.com/Bharath8080/voiced/pkg/core/types"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/firecrawl"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/safety"
)

// WebFetch reads a single page the model already has a URL for.
type WebFetch struct {
	client *firecrawl.Client
}

func NewWebFetch(client *firecrawl.Client) *WebFetch {
	return &WebFetch{client: client}
}

func (t *WebFetch) Name() string { return "web_fetch" }

func (t *WebFetch) Description() string {
	return "Fetch the readable content of a specific web page by URL. Use after web_search when a snippet is not enough."
}

func (t *WebFetch) Schema() *types.JSONSchema {
	return &types.JSONSchema{
		Type: "object",
		Properties: map[string]*types.JSONSchema{
			"url": {Type: "string", Description: "The absolute http(s) URL to fetch."},
		},
		Required: []string{"url"},
	}
}

func (t *WebFetch) Execute(ctx context.Context, args map[string]any) (string, error) {
	raw, _ := args["url"].(string)
	target, err := safety.ValidateTargetURL(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("url rejected: %w", err)
	}
	page, err := t.client.Scrape(ctx, target.String())
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if page.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", page.Title)
	}
	fmt.Fprintf(&b, "URL: %s\n\n%s", page.URL, truncate(page.Content, 8000))
	return b.String(), nil
}
