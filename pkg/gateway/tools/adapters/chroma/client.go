// Package chroma queries a Chroma vector store over its HTTP API for
// retrieval-augmented document lookup.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Document is one retrieved chunk with its distance to the query.
type Document struct {
	ID       string
	Content  string
	Source   string
	Distance float64
}

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

// NewClient targets one collection on a Chroma server. The server
// embeds queries with the collection's embedding function.
func NewClient(baseURL, collection string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		collection: strings.TrimSpace(collection),
		httpClient: httpClient,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.collection != ""
}

// Query returns the topK closest chunks to the query text.
func (c *Client) Query(ctx context.Context, query string, topK int) ([]Document, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("chroma endpoint is not configured")
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if topK <= 0 {
		topK = 4
	}

	body, err := json.Marshal(map[string]any{
		"query_texts": []string{query},
		"n_results":   topK,
		"include":     []string{"documents", "metadatas", "distances"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/collections/" + url.PathEscape(c.collection) + "/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, fmt.Errorf("chroma error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var decoded struct {
		IDs       [][]string         `json:"ids"`
		Documents [][]string         `json:"documents"`
		Metadatas [][]map[string]any `json:"metadatas"`
		Distances [][]float64        `json:"distances"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.IDs) == 0 {
		return nil, nil
	}

	var out []Document
	for i, id := range decoded.IDs[0] {
		doc := Document{ID: id}
		if len(decoded.Documents) > 0 && i < len(decoded.Documents[0]) {
			doc.Content = decoded.Documents[0][i]
		}
		if len(decoded.Metadatas) > 0 && i < len(decoded.Metadatas[0]) {
			if src, ok := decoded.Metadatas[0][i]["source"].(string); ok {
				doc.Source = src
			}
		}
		if len(decoded.Distances) > 0 && i < len(decoded.Distances[0]) {
			doc.Distance = decoded.Distances[0][i]
		}
		out = append(out, doc)
	}
	return out, nil
}
