package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Defaults(t *testing.T) {
	viper.Reset()
	t.Setenv("STORE_DRIVER", "memory")

	c := Init()

	assert.Equal(t, "server", c.Mode)
	assert.Equal(t, ":8080", c.ServerAddr)
	assert.Equal(t, 24*time.Hour, c.JWTTTL)
	assert.Equal(t, "minitweet", c.CassandraKeyspace)
	assert.Equal(t, "minitweet-activity", c.KafkaTopic)
	assert.True(t, c.EventsEnabled)
	assert.NotEmpty(t, c.JWTSecret, "memory driver falls back to a development secret")
	assert.Same(t, c, Get())
	require.NoError(t, c.Validate())
}

func TestInit_EnvOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("KAFKA_WRITE_TIMEOUT", "not-a-duration")
	t.Setenv("EVENTS_ENABLED", "false")

	c := Init()

	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, 90*time.Minute, c.JWTTTL)
	assert.Equal(t, 10*time.Second, c.KafkaWriteTO)
	assert.False(t, c.EventsEnabled)
	assert.Equal(t, DriverCassandra, c.StoreDriver)
}

func TestValidate(t *testing.T) {
	base := Config{Mode: "server", StoreDriver: DriverCassandra, JWTSecret: "x", EventsEnabled: true}

	cases := map[string]func(c *Config){
		"unknown mode":         func(c *Config) { c.Mode = "batch" },
		"unknown driver":       func(c *Config) { c.StoreDriver = "mongo" },
		"missing secret":       func(c *Config) { c.JWTSecret = "" },
		"worker on memory":     func(c *Config) { c.Mode = "worker"; c.StoreDriver = DriverMemory },
		"worker without kafka": func(c *Config) { c.Mode = "worker"; c.EventsEnabled = false },
		"half tls":             func(c *Config) { c.TLSCertFile = "cert.pem" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	ok := base
	require.NoError(t, ok.Validate())
	assert.False(t, ok.TLSEnabled())
	ok.TLSCertFile, ok.TLSKeyFile = "cert.pem", "key.pem"
	assert.True(t, ok.TLSEnabled())
}
