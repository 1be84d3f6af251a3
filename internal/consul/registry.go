package consul

import (
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

// ServiceConfig contains configuration for service registration
type ServiceConfig struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
	Check   *HealthCheck
}

// HealthCheck defines health check configuration
type HealthCheck struct {
	HTTP     string
	Interval string
	Timeout  string
	// DeregisterAfter drops the instance once the check stays critical this long.
	DeregisterAfter string
}

// ServiceRegistrar defines the interface for service registration
type ServiceRegistrar interface {
	Register(cfg *ServiceConfig) error
	Deregister(serviceID string) error
}

// HTTPService describes an instance reachable at host:port with a GET /health check.
func HTTPService(name, host string, port int, tags ...string) *ServiceConfig {
	return &ServiceConfig{
		ID:      fmt.Sprintf("%s-%s-%d", name, host, port),
		Name:    name,
		Address: host,
		Port:    port,
		Tags:    tags,
		Check: &HealthCheck{
			HTTP:            fmt.Sprintf("http://%s:%d/health", host, port),
			Interval:        "10s",
			Timeout:         "3s",
			DeregisterAfter: "1m",
		},
	}
}

func (cfg *ServiceConfig) registration() *consulapi.AgentServiceRegistration {
	registration := &consulapi.AgentServiceRegistration{
		ID:      cfg.ID,
		Name:    cfg.Name,
		Address: cfg.Address,
		Port:    cfg.Port,
		Tags:    cfg.Tags,
	}

	if cfg.Check != nil {
		registration.Check = &consulapi.AgentServiceCheck{
			HTTP:                           cfg.Check.HTTP,
			Interval:                       cfg.Check.Interval,
			Timeout:                        cfg.Check.Timeout,
			DeregisterCriticalServiceAfter: cfg.Check.DeregisterAfter,
		}
	}
	return registration
}

// Register registers a service with Consul
func (c *Client) Register(cfg *ServiceConfig) error {
	if err := c.api.Agent().ServiceRegister(cfg.registration()); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}
	return nil
}

// Deregister removes a service from Consul
func (c *Client) Deregister(serviceID string) error {
	if err := c.api.Agent().ServiceDeregister(serviceID); err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}
	return nil
}
