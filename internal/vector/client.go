package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrUnavailable marks failures to reach the vector store at all, as
// opposed to errors the store itself returned. The dispatcher maps it to
// a 502.
var ErrUnavailable = errors.New("vector store unavailable")

// Record is one entry in the vector index. Metadata is flat string-keyed;
// list-valued recipe fields cross the EncodeMetadata boundary first.
type Record struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Match is a query hit. Values are never requested, so only id, score and
// metadata come back.
type Match struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Query is a similarity query against one namespace. Filter uses the
// store's equality operator per field ({"cuisine": {"$eq": "Italian"}}).
type Query struct {
	Vector          []float32                    `json:"vector"`
	TopK            int                          `json:"topK"`
	Filter          map[string]map[string]string `json:"filter,omitempty"`
	IncludeMetadata bool                         `json:"includeMetadata"`
	IncludeValues   bool                         `json:"includeValues"`
	Namespace       string                       `json:"namespace,omitempty"`
}

// Client talks to the vector database's REST data plane.
type Client struct {
	baseURL   string
	apiKey    string
	namespace string
	http      *http.Client
	logger    *zap.Logger
}

// NewClient creates a client bound to one index host and namespace.
func NewClient(baseURL, apiKey, namespace string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		namespace: namespace,
		http:      &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

// Namespace returns the namespace this client writes into.
func (c *Client) Namespace() string {
	return c.namespace
}

// Upsert inserts or replaces records by id.
func (c *Client) Upsert(ctx context.Context, records []Record) error {
	payload := struct {
		Vectors   []Record `json:"vectors"`
		Namespace string   `json:"namespace,omitempty"`
	}{Vectors: records, Namespace: c.namespace}

	if err := c.post(ctx, "/vectors/upsert", payload, nil); err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}
	c.logger.Debug("upserted records", zap.Int("count", len(records)), zap.String("namespace", c.namespace))
	return nil
}

// SearchByVector returns the topK nearest records to the given embedding,
// constrained by any present filter fields.
func (c *Client) SearchByVector(ctx context.Context, embedding []float32, topK int, filter map[string]map[string]string) ([]Match, error) {
	q := Query{
		Vector:          embedding,
		TopK:            topK,
		Filter:          filter,
		IncludeMetadata: true,
		IncludeValues:   false,
		Namespace:       c.namespace,
	}
	return c.query(ctx, q)
}

// SearchByTitle looks up records whose title metadata equals title exactly.
// The store has no primary lookup by metadata, so this rides the filter
// path with a zero vector of the embedding dimensionality.
func (c *Client) SearchByTitle(ctx context.Context, title string, dimensions int) ([]Match, error) {
	q := Query{
		Vector:          make([]float32, dimensions),
		TopK:            10,
		Filter:          map[string]map[string]string{"title": {"$eq": title}},
		IncludeMetadata: true,
		IncludeValues:   false,
		Namespace:       c.namespace,
	}
	return c.query(ctx, q)
}

// DeleteOne removes the record with the given id. Deleting a missing id is
// not an error.
func (c *Client) DeleteOne(ctx context.Context, id string) error {
	payload := struct {
		IDs       []string `json:"ids"`
		Namespace string   `json:"namespace,omitempty"`
	}{IDs: []string{id}, Namespace: c.namespace}

	if err := c.post(ctx, "/vectors/delete", payload, nil); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	c.logger.Debug("deleted record", zap.String("id", id), zap.String("namespace", c.namespace))
	return nil
}

func (c *Client) query(ctx context.Context, q Query) ([]Match, error) {
	var result struct {
		Matches []Match `json:"matches"`
	}
	if err := c.post(ctx, "/query", q, &result); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return result.Matches, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vector store returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
