package builtins

import (
	"context"
	"fmt"
	"strings"

	"github.com/Bharath8080/voiced/pkg/core/types"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/chroma"
)

// DocumentSearch retrieves passages from the indexed document
// collection.
type DocumentSearch struct {
	client *chroma.Client
}

func NewDocumentSearch(client *chroma.Client) *DocumentSearch {
	return &DocumentSearch{client: client}
}

func (t *DocumentSearch) Name() string { return "search_documents" }

func (t *DocumentSearch) Description() string {
	return "Search the indexed document collection for passages relevant to a question."
}

func (t *DocumentSearch) Schema() *types.JSONSchema {
	return &types.JSONSchema{
		Type: "object",
		Properties: map[string]*types.JSONSchema{
			"query": {Type: "string", Description: "What to look for."},
			"top_k": {Type: "integer", Description: "How many passages to return. Defaults to 4."},
		},
		Required: []string{"query"},
	}
}

func (t *DocumentSearch) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	topK := 0
	if k, ok := args["top_k"].(float64); ok {
		topK = int(k)
	}

	docs, err := t.client.Query(ctx, query, topK)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "No matching passages found.", nil
	}

	var b strings.Builder
	for i, doc := range docs {
		if doc.Source != "" {
			fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, doc.Source, doc.Content)
		} else {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, doc.Content)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
