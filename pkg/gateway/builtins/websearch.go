// Package builtins provides the stock tool executors: web search,
// weather, market data, travel lookup, and document retrieval.
package builtins

import (
	"context"
	"fmt"
	"strings"

	"github.com/Bharath8080/voiced/pkg/core/types"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/tavily"
)

// WebSearch answers open-ended questions with Tavily search results.
type WebSearch struct {
	client     *tavily.Client
	maxResults int
}

func NewWebSearch(client *tavily.Client, maxResults int) *WebSearch {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &WebSearch{client: client, maxResults: maxResults}
}

func (t *WebSearch) Name() string { return "web_search" }

func (t *WebSearch) Description() string {
	return "Search the web for current information. Use for news, facts, and anything outside your knowledge."
}

func (t *WebSearch) Schema() *types.JSONSchema {
	return &types.JSONSchema{
		Type: "object",
		Properties: map[string]*types.JSONSchema{
			"query": {Type: "string", Description: "The search query."},
		},
		Required: []string{"query"},
	}
}

func (t *WebSearch) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	resp, err := t.client.Search(ctx, query, t.maxResults)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if resp.Answer != "" {
		fmt.Fprintf(&b, "Answer: %s\n\n", resp.Answer)
	}
	if len(resp.Hits) == 0 && resp.Answer == "" {
		return "No results found.", nil
	}
	for i, hit := range resp.Hits {
		fmt.Fprintf(&b, "%d. %s\n%s\n", i+1, hit.Title, hit.Snippet)
	}
	return strings.TrimSpace(b.String()), nil
}
