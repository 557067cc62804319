// Package graph is the thin client layer over a property graph database used
// to mirror the debt network for external graph analytics.
package graph

import (
	"context"
	"errors"
)

// Client is the minimal contract the debt mirror needs from a graph database.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result is a simplified representation of a query response.
type Result struct {
	Records []Record
}

// Record groups key-value pairs returned from the graph engine.
type Record map[string]any

// Options configures a graph client implementation.
type Options struct {
	URI            string `yaml:"uri" json:"uri"`
	Database       string `yaml:"database" json:"database"`
	Username       string `yaml:"username" json:"username"`
	Password       string `yaml:"password" json:"-"`
	MaxConnections int    `yaml:"max_connections" json:"max_connections"`
}

// Enabled reports whether a graph endpoint is configured.
func (o Options) Enabled() bool {
	return o.URI != ""
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
