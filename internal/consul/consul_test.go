package consul

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPService(t *testing.T) {
	cfg := HTTPService("forum-service", "forum", 8080, "forum", "posts")

	assert.Equal(t, "forum-service-forum-8080", cfg.ID)
	assert.Equal(t, []string{"forum", "posts"}, cfg.Tags)

	reg := cfg.registration()
	require.NotNil(t, reg.Check)
	assert.Equal(t, "http://forum:8080/health", reg.Check.HTTP)
	assert.Equal(t, "1m", reg.Check.DeregisterCriticalServiceAfter)
}

func TestRegistrationWithoutCheck(t *testing.T) {
	reg := (&ServiceConfig{ID: "x", Name: "x"}).registration()
	assert.Nil(t, reg.Check)
}

func TestPick(t *testing.T) {
	_, err := Pick(nil)
	assert.ErrorIs(t, err, ErrNoInstances)

	instances := []*ServiceInstance{
		{ID: "a", Address: "10.0.0.1", Port: 8080},
		{ID: "b", Address: "10.0.0.2", Port: 8080},
	}
	for range 20 {
		got, err := Pick(instances)
		require.NoError(t, err)
		assert.Contains(t, []string{"a", "b"}, got.ID)
	}
	assert.Equal(t, "http://10.0.0.1:8080", instances[0].URL())
}

func TestNewClientWithToken(t *testing.T) {
	c, err := NewClientWithToken("127.0.0.1:8500", "secret")
	require.NoError(t, err)
	assert.NotNil(t, c.API())
}
