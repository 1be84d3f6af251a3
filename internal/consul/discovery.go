package consul

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	consulapi "github.com/hashicorp/consul/api"
)

var ErrNoInstances = errors.New("no healthy instances")

// ServiceInstance represents a discovered service instance
type ServiceInstance struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
}

// URL returns the plain HTTP base URL of the instance.
func (s *ServiceInstance) URL() string {
	return fmt.Sprintf("http://%s:%d", s.Address, s.Port)
}

// ServiceDiscovery defines the interface for service discovery
type ServiceDiscovery interface {
	Discover(ctx context.Context, serviceName string) ([]*ServiceInstance, error)
	DiscoverOne(ctx context.Context, serviceName string) (*ServiceInstance, error)
}

// Discover retrieves all healthy instances of a service
func (c *Client) Discover(ctx context.Context, serviceName string) ([]*ServiceInstance, error) {
	q := (&consulapi.QueryOptions{}).WithContext(ctx)
	services, _, err := c.api.Health().Service(serviceName, "", true, q)
	if err != nil {
		return nil, fmt.Errorf("failed to discover service %s: %w", serviceName, err)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("%w for service %s", ErrNoInstances, serviceName)
	}

	instances := make([]*ServiceInstance, 0, len(services))
	for _, entry := range services {
		instance := &ServiceInstance{
			ID:      entry.Service.ID,
			Name:    entry.Service.Service,
			Address: entry.Service.Address,
			Port:    entry.Service.Port,
			Tags:    entry.Service.Tags,
		}

		// Use node address if service address is empty
		if instance.Address == "" {
			instance.Address = entry.Node.Address
		}

		instances = append(instances, instance)
	}

	return instances, nil
}

// DiscoverOne retrieves a single healthy instance using random load balancing
func (c *Client) DiscoverOne(ctx context.Context, serviceName string) (*ServiceInstance, error) {
	instances, err := c.Discover(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	return Pick(instances)
}

// Pick chooses one instance at random.
func Pick(instances []*ServiceInstance) (*ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	return instances[rand.IntN(len(instances))], nil
}
