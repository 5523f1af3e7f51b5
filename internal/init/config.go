package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverCassandra = "cassandra"
	DriverMemory    = "memory"

	devJWTSecret = "minitweet-dev-secret"
)

type Config struct {
	// App mode & server
	Mode        string
	ServerAddr  string
	TLSCertFile string
	TLSKeyFile  string
	LogLevel    string

	// Auth
	JWTSecret string
	JWTTTL    time.Duration

	// Storage
	StoreDriver    string
	MigrationsPath string

	// Kafka
	EventsEnabled  bool
	KafkaBroker    string
	KafkaTopic     string
	KafkaGroupID   string
	KafkaPartition int
	KafkaReadTO    time.Duration
	KafkaWriteTO   time.Duration

	// Cassandra
	CassandraHost     string
	CassandraKeyspace string
	CassandraUsername string
	CassandraPassword string
	CassandraTimeout  time.Duration
	CassandraDC       string
}

var cfg *Config

// Init loads the config using Viper and returns it
func Init() *Config {
	viper.SetDefault("MODE", "server")
	viper.SetDefault("SERVER_ADDR", ":8080")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.SetDefault("JWT_TTL", "24h")

	viper.SetDefault("STORE_DRIVER", DriverCassandra)
	viper.SetDefault("MIGRATIONS_PATH", "./migrations/cassandra")

	viper.SetDefault("EVENTS_ENABLED", true)
	viper.SetDefault("KAFKA_BROKER", "localhost:29092")
	viper.SetDefault("KAFKA_TOPIC", "minitweet-activity")
	viper.SetDefault("KAFKA_GROUP_ID", "activity-worker")
	viper.SetDefault("KAFKA_PARTITION", 0)
	viper.SetDefault("KAFKA_READ_TIMEOUT", "10s")
	viper.SetDefault("KAFKA_WRITE_TIMEOUT", "10s")

	viper.SetDefault("CASSANDRA_HOST", "localhost")
	viper.SetDefault("CASSANDRA_KEYSPACE", "minitweet")
	viper.SetDefault("CASSANDRA_TIMEOUT", "10s")
	// Optional: Cassandra username/password/DC can be empty

	// Load env variables
	viper.AutomaticEnv()

	// Optional config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	_ = viper.ReadInConfig() // ignore error if no file

	cfg = &Config{
		Mode:              viper.GetString("MODE"),
		ServerAddr:        viper.GetString("SERVER_ADDR"),
		TLSCertFile:       viper.GetString("TLS_CERT_FILE"),
		TLSKeyFile:        viper.GetString("TLS_KEY_FILE"),
		LogLevel:          viper.GetString("LOG_LEVEL"),
		JWTSecret:         viper.GetString("JWT_SECRET"),
		JWTTTL:            parseDuration(viper.GetString("JWT_TTL"), 24*time.Hour),
		StoreDriver:       viper.GetString("STORE_DRIVER"),
		MigrationsPath:    viper.GetString("MIGRATIONS_PATH"),
		EventsEnabled:     viper.GetBool("EVENTS_ENABLED"),
		KafkaBroker:       viper.GetString("KAFKA_BROKER"),
		KafkaTopic:        viper.GetString("KAFKA_TOPIC"),
		KafkaGroupID:      viper.GetString("KAFKA_GROUP_ID"),
		KafkaPartition:    viper.GetInt("KAFKA_PARTITION"),
		KafkaReadTO:       parseDuration(viper.GetString("KAFKA_READ_TIMEOUT"), 10*time.Second),
		KafkaWriteTO:      parseDuration(viper.GetString("KAFKA_WRITE_TIMEOUT"), 10*time.Second),
		CassandraHost:     viper.GetString("CASSANDRA_HOST"),
		CassandraKeyspace: viper.GetString("CASSANDRA_KEYSPACE"),
		CassandraUsername: viper.GetString("CASSANDRA_USERNAME"),
		CassandraPassword: viper.GetString("CASSANDRA_PASSWORD"),
		CassandraTimeout:  parseDuration(viper.GetString("CASSANDRA_TIMEOUT"), 10*time.Second),
		CassandraDC:       viper.GetString("CASSANDRA_DC"),
	}

	// The in-memory driver is for local runs, so it may fall back to a fixed secret.
	if cfg.JWTSecret == "" && cfg.StoreDriver == DriverMemory {
		cfg.JWTSecret = devJWTSecret
	}

	return cfg
}

// Validate reports settings that make the selected mode unusable.
func (c *Config) Validate() error {
	switch c.Mode {
	case "server", "worker":
	default:
		return errors.New("MODE must be server or worker")
	}
	switch c.StoreDriver {
	case DriverCassandra, DriverMemory:
	default:
		return errors.New("STORE_DRIVER must be cassandra or memory")
	}
	if c.Mode == "server" && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Mode == "worker" && c.StoreDriver != DriverCassandra {
		return errors.New("worker mode requires the cassandra store")
	}
	if c.Mode == "worker" && !c.EventsEnabled {
		return errors.New("worker mode requires EVENTS_ENABLED")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return nil
}

// TLSEnabled reports whether the server should serve HTTPS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

// Get returns the loaded config instance
func Get() *Config {
	return cfg
}
