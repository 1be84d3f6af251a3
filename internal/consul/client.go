// Package consul registers the forum service with HashiCorp Consul and lets the
// gateway discover healthy instances of it.
package consul

import (
	"context"
	"errors"

	consulapi "github.com/hashicorp/consul/api"
)

// Client wraps the Consul API client
type Client struct {
	api *consulapi.Client
}

// NewClientWithToken creates a new Consul client with ACL token authentication
func NewClientWithToken(addr, token string) (*Client, error) {
	config := consulapi.DefaultConfig()
	if addr != "" {
		config.Address = addr
	}
	if token != "" {
		config.Token = token
	}

	client, err := consulapi.NewClient(config)
	if err != nil {
		return nil, err
	}

	return &Client{api: client}, nil
}

// Health fails when the agent cannot be reached or the cluster has no leader.
func (c *Client) Health(ctx context.Context) error {
	leader, err := c.api.Status().LeaderWithQueryOptions((&consulapi.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return err
	}
	if leader == "" {
		return errors.New("consul cluster has no leader")
	}
	return nil
}

// API returns the underlying Consul API client
func (c *Client) API() *consulapi.Client {
	return c.api
}
