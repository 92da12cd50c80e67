// Package gh is a GitHub GraphQL client for the project-board lookups and
// mutations the webhook handlers need.
package gh

import (
	"context"

	"github.com/machinebox/graphql"
)

// DefaultEndpoint is the public GitHub GraphQL API.
const DefaultEndpoint = "https://api.github.com/graphql"

// TokenSource yields an API token for an installation. Every outbound call
// carries the identity of the installation that issued the triggering
// delivery.
type TokenSource interface {
	Token(ctx context.Context, installationID int64) (string, error)
}

// StaticTokenSource returns the same token for every installation.
type StaticTokenSource string

func (s StaticTokenSource) Token(ctx context.Context, installationID int64) (string, error) {
	return string(s), nil
}

// Client wraps the GraphQL transport. Methods take the installation id the
// call should act as.
type Client struct {
	gql    *graphql.Client
	tokens TokenSource
}

// NewClient creates a client against endpoint, or DefaultEndpoint if empty.
func NewClient(endpoint string, tokens TokenSource) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		gql:    graphql.NewClient(endpoint),
		tokens: tokens,
	}
}

func (c *Client) makeRequest(ctx context.Context, installationID int64, req *graphql.Request, resp interface{}) error {
	token, err := c.tokens.Token(ctx, installationID)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.gql.Run(ctx, req, resp)
}
