package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate aplica las migraciones embebidas del dialecto; sin cambios pendientes no es error
func (s *SQLDB) Migrate(ctx context.Context, logger *zap.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(s.Dialect))
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}
	defer src.Close()

	driver, release, err := s.migrateDriver(ctx)
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	defer release()

	m, err := migrate.NewWithInstance("iofs", src, string(s.Dialect), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	m.Log = migrateLogger{logger: logger}

	// m.Close() cerraría el *sql.DB compartido; solo se libera la fuente y la conexión propia
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("Esquema al día")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("✅ Migraciones aplicadas", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func (s *SQLDB) migrateDriver(ctx context.Context) (migratedb.Driver, func(), error) {
	switch s.Dialect {
	case SQLite:
		driver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
		return driver, func() {}, err
	case Postgres:
		// una conexión dedicada sostiene el advisory lock de la migración
		conn, err := s.DB.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return driver, func() { conn.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported dialect %q", s.Dialect)
	}
}

type migrateLogger struct {
	logger *zap.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Sugar().Debugf(format, v...)
}

func (l migrateLogger) Verbose() bool {
	return false
}
