package builtins

import (
	"context"
	"fmt"
	"strings"

	"github.com/Bharath8080/voiced/pkg/core/types"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/serper"
)

// ShoppingSearch finds products on Google Shopping via Serper.
type ShoppingSearch struct {
	client     *serper.Client
	maxResults int
}

func NewShoppingSearch(client *serper.Client, maxResults int) *ShoppingSearch {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &ShoppingSearch{client: client, maxResults: maxResults}
}

func (t *ShoppingSearch) Name() string { return "shopping_search" }

func (t *ShoppingSearch) Description() string {
	return "Search for products to buy, with prices, sellers, and ratings. Use when the user asks about buying something or comparing prices."
}

func (t *ShoppingSearch) Schema() *types.JSONSchema {
	return &types.JSONSchema{
		Type: "object",
		Properties: map[string]*types.JSONSchema{
			"query": {Type: "string", Description: "What to shop for, e.g. \"nike running shoes\"."},
		},
		Required: []string{"query"},
	}
}

func (t *ShoppingSearch) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	products, err := t.client.ShoppingSearch(ctx, query, t.maxResults)
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return fmt.Sprintf("No products found for %q.", query), nil
	}
	var b strings.Builder
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s, %s from %s", i+1, p.Title, p.Price, p.Source)
		if p.Rating > 0 {
			fmt.Fprintf(&b, ", rated %.1f/5 (%d reviews)", p.Rating, p.RatingCount)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
