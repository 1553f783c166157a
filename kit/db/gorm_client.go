package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"

	mysqlDuplicateEntry     = 1062
	postgresUniqueViolation = "23505"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// GormClient implements Client on top of a gorm connection. Only raw SQL goes
// through it; the gorm model layer is used for migrations.
type GormClient struct {
	db *gorm.DB
}

func NewGormClient(gdb *gorm.DB) *GormClient {
	return &GormClient{db: gdb}
}

func OpenGorm(driver, dsn string, pool PoolConfig) (*GormClient, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Join(ErrInternal, fmt.Errorf("open %s: %w", driver, err))
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, errors.Join(ErrInternal, err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	return &GormClient{db: gdb}, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverMySQL:
		cfg, err := mysqldrv.ParseDSN(dsn)
		if err != nil {
			return nil, errors.Join(ErrInvalid, fmt.Errorf("mysql dsn: %w", err))
		}
		// Affected rows must count matched rows, otherwise an idempotent
		// status update reports "no record".
		cfg.ClientFoundRows = true
		cfg.ParseTime = true
		return gormmysql.Open(cfg.FormatDSN()), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return nil, errors.Join(ErrInvalid, fmt.Errorf("unsupported db driver %q", driver))
	}
}

func (c *GormClient) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res := c.db.WithContext(ctx).Exec(query, args...)
	if res.Error != nil {
		return 0, Translate(res.Error)
	}
	return res.RowsAffected, nil
}

func (c *GormClient) QueryRow(ctx context.Context, query string, args ...any) (Row, error) {
	row := c.db.WithContext(ctx).Raw(query, args...).Row()
	if row == nil {
		return nil, errors.Join(ErrInternal, errors.New("nil row"))
	}
	return &sqlRow{row: row}, nil
}

func (c *GormClient) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, Translate(err)
	}
	return rows, nil
}

func (c *GormClient) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return errors.Join(ErrInternal, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Join(ErrInternal, err)
	}
	return nil
}

// AutoMigrate creates or updates the tables backing the given gorm models.
func (c *GormClient) AutoMigrate(models ...any) error {
	if err := c.db.AutoMigrate(models...); err != nil {
		return errors.Join(ErrInternal, err)
	}
	return nil
}

func (c *GormClient) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type sqlRow struct {
	row *sql.Row
}

func (r *sqlRow) Scan(dest ...any) error {
	return Translate(r.row.Scan(dest...))
}

// Translate maps driver errors onto the package sentinels.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.Is(err, ErrInvalid), errors.Is(err, ErrInternal):
		return err
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Join(ErrNotFound, err)
	case IsDuplicateKey(err):
		return errors.Join(ErrConflict, err)
	default:
		return errors.Join(ErrInternal, err)
	}
}

func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return true
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) && pe.Code == postgresUniqueViolation {
		return true
	}
	return false
}
