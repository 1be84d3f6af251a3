package kafka

import (
	"fmt"
	"strings"
)

// Config holds Kafka configuration
type Config struct {
	Brokers           string
	PostEventsTopic   string
	EnableIdempotence bool
	Acks              string
}

// NewConfig builds a producer configuration for the given comma separated brokers.
func NewConfig(brokers, postEventsTopic string) (*Config, error) {
	if strings.TrimSpace(brokers) == "" {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if postEventsTopic == "" {
		postEventsTopic = "post-events"
	}

	return &Config{
		Brokers:           brokers,
		PostEventsTopic:   postEventsTopic,
		EnableIdempotence: true,
		Acks:              "all",
	}, nil
}

// GetBrokersList returns brokers as a slice
func (c *Config) GetBrokersList() []string {
	var out []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
