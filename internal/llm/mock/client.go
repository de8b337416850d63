// Package mock provides a deterministic llm.Client for tests and offline
// runs. Responses cycle through a fixed script, so a pipeline exercised
// against the mock produces the same dataset every time.
package mock

import (
	"context"
	"sync"

	"procurement-query-pipeline/internal/llm"
)

// DefaultResponses cycle when no script is provided. They are valid queries
// against the procurement schema so the downstream validator passes.
var DefaultResponses = []string{
	`{"department_name": "Water Resources", "fiscal_year": "2014-2015"}`,
	`{"aggregate": true, "pipeline": [{"$group": {"_id": "$supplier_name", "total_purchases": {"$sum": "$total_price"}}}, {"$sort": {"total_purchases": -1}}, {"$limit": 5}]}`,
	`{"acquisition_type": "IT Goods", "total_price": {"$gt": 10000}}`,
}

// Client implements llm.Client with scripted responses.
type Client struct {
	mu        sync.Mutex
	responses []string
	index     int

	// Requests records every request received, for assertions.
	Requests []llm.Request

	// Err, when set, is returned by every Complete call.
	Err error
}

// New creates a mock client cycling through DefaultResponses.
func New() *Client {
	return NewScripted(DefaultResponses)
}

// NewScripted creates a mock client cycling through the given responses.
func NewScripted(responses []string) *Client {
	return &Client{responses: responses}
}

// Model returns a fixed mock identifier.
func (c *Client) Model() string {
	return "mock"
}

// Complete returns the next scripted response.
func (c *Client) Complete(_ context.Context, req llm.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Requests = append(c.Requests, req)
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.responses) == 0 {
		return "", nil
	}
	resp := c.responses[c.index%len(c.responses)]
	c.index++
	return resp, nil
}
