package store

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	config "example.com/minitweet/internal/init"
	"github.com/gocql/gocql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/cassandra"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// SessionInterface is the part of *gocql.Session the store uses.
type SessionInterface interface {
	Query(stmt string, values ...interface{}) *gocql.Query
	NewBatch(batchType gocql.BatchType) *gocql.Batch
	ExecuteBatch(batch *gocql.Batch) error
	Close()
}

// Store is the Cassandra-backed StoreInterface.
type Store struct {
	Session SessionInterface
}

// New creates the keyspace when missing, applies pending migrations and opens a
// quorum session on it.
func New(cfg *config.Config) (*Store, error) {
	if err := ensureKeyspace(cfg); err != nil {
		return nil, fmt.Errorf("failed to ensure keyspace: %w", err)
	}
	if err := runMigrations(cfg); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cluster := newCluster(cfg, cfg.CassandraKeyspace)
	cluster.Consistency = gocql.Quorum
	cluster.SerialConsistency = gocql.Serial

	sess, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Cassandra session: %w", err)
	}

	logg.Info("store", "Cassandra session ready")
	return &Store{Session: sess}, nil
}

// newCluster applies the connection settings shared by every session the store opens.
func newCluster(cfg *config.Config, keyspace string) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.CassandraHost)
	cluster.Keyspace = keyspace
	cluster.Timeout = cfg.CassandraTimeout
	cluster.ConnectTimeout = cfg.CassandraTimeout
	if cfg.CassandraUsername != "" && cfg.CassandraPassword != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.CassandraUsername,
			Password: cfg.CassandraPassword,
		}
	}
	if cfg.CassandraDC != "" {
		cluster.HostFilter = gocql.DataCentreHostFilter(cfg.CassandraDC)
	}
	return cluster
}

func keyspaceCQL(keyspace string) string {
	return fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`,
		keyspace,
	)
}

// ensureKeyspace runs against the system keyspace because migrate needs the target to exist.
func ensureKeyspace(cfg *config.Config) error {
	sess, err := newCluster(cfg, "system").CreateSession()
	if err != nil {
		return fmt.Errorf("failed to connect to Cassandra system keyspace: %w", err)
	}
	defer sess.Close()

	if err := sess.Query(keyspaceCQL(cfg.CassandraKeyspace)).Exec(); err != nil {
		return fmt.Errorf("failed to create keyspace: %w", err)
	}
	logg.Debug("store", "Keyspace present")
	return nil
}

// migrationURLs returns the file source and the cassandra database URL for migrate.
func migrationURLs(cfg *config.Config) (string, string) {
	source := "file://" + filepath.ToSlash(filepath.Clean(cfg.MigrationsPath))

	params := url.Values{}
	params.Set("x-migrations-table", "schema_migrations")
	params.Set("x-multi-statement", "true")
	if cfg.CassandraUsername != "" && cfg.CassandraPassword != "" {
		params.Set("username", cfg.CassandraUsername)
		params.Set("password", cfg.CassandraPassword)
	}
	db := url.URL{
		Scheme:   "cassandra",
		Host:     cfg.CassandraHost,
		Path:     "/" + cfg.CassandraKeyspace,
		RawQuery: params.Encode(),
	}
	return source, db.String()
}

func runMigrations(cfg *config.Config) error {
	sourceURL, dbURL := migrationURLs(cfg)
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		logg.Info("store", "Schema up to date")
	case err != nil:
		return fmt.Errorf("migration up failed: %w", err)
	default:
		logg.Info("store", "Schema migrated")
	}
	return nil
}

// Close closes the session.
func (s *Store) Close() {
	if s.Session != nil {
		s.Session.Close()
		logg.Info("store", "Cassandra session closed")
	}
}
