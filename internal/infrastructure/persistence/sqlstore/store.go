// Package sqlstore implements the repository ports on database/sql for
// SQLite (modernc.org/sqlite) and Postgres (pgx stdlib driver).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/persistence/sqlstore/migrations"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// QueryRecorder observes store operations. observability.Collector
// satisfies it.
type QueryRecorder interface {
	ObserveQuery(operation, table string, err error, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveQuery(string, string, error, time.Duration) {}

// Options configures Open.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Recorder        QueryRecorder
	Logger          *zap.Logger
}

// Store persists stories, reactions, reports and resources.
type Store struct {
	db       *sql.DB
	dialect  Dialect
	recorder QueryRecorder
	logger   *zap.Logger
}

// Open connects to the configured database and applies embedded migrations.
func Open(ctx context.Context, opts Options) (*Store, error) {
	dialect := Dialect(strings.ToLower(strings.TrimSpace(opts.Driver)))
	if dialect == "" {
		dialect = SQLite
	}
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, fmt.Errorf("storage dsn is required")
	}

	var (
		driverName string
		dsn        string
	)
	switch dialect {
	case SQLite:
		driverName, dsn = "sqlite", sqliteDSN(opts.DSN)
	case Postgres:
		driverName, dsn = "pgx", opts.DSN
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}

	if dialect == SQLite && isSQLiteMemory(opts.DSN) {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}

	if err := ApplyMigrations(ctx, db, dialect, migrations.FS, string(dialect)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Relational store ready", zap.String("dialect", string(dialect)))

	return &Store{db: db, dialect: dialect, recorder: recorder, logger: logger}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Dialect reports the backend in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	return rebind(s.dialect, query)
}

// track starts timing an operation. The returned func records it with the
// final value of *errp.
func (s *Store) track(operation, table string) func(errp *error) {
	start := time.Now()
	return func(errp *error) {
		var err error
		if errp != nil && !errors.Is(*errp, sql.ErrNoRows) {
			err = *errp
		}
		s.recorder.ObserveQuery(operation, table, err, time.Since(start))
	}
}

func rebind(dialect Dialect, query string) string {
	if dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// sqliteDSN turns a file path into a modernc DSN with foreign keys enforced.
func sqliteDSN(path string) string {
	pragmas := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	if !isSQLiteMemory(path) {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}

	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}

func isSQLiteMemory(path string) bool {
	return strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory")
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
