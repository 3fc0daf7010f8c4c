package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/config"
)

const connectTimeout = 5 * time.Second

// ErrMissingDSN is returned when DATABASE_URL is empty.
var ErrMissingDSN = errors.New("DATABASE_URL is required")

// Postgres owns the pgx pool shared by every repository.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres opens the pool and verifies it with a bounded ping.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns))
	return &Postgres{Pool: pool}, nil
}

// poolConfig parses the DSN and applies pool sizing. Sessions run in UTC so
// month boundaries in claim and income stats match the service clock.
func poolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	if cfg.DSN == "" {
		return nil, ErrMissingDSN
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 && cfg.MinConns <= poolCfg.MaxConns {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}
	if cfg.HealthCheckSec > 0 {
		poolCfg.HealthCheckPeriod = time.Duration(cfg.HealthCheckSec) * time.Second
	}

	params := poolCfg.ConnConfig.RuntimeParams
	if cfg.ApplicationName != "" {
		params["application_name"] = cfg.ApplicationName
	}
	params["timezone"] = "UTC"
	return poolCfg, nil
}

// RegisterMetrics exports pool utilisation gauges on reg.
func (p *Postgres) RegisterMetrics(reg prometheus.Registerer) error {
	if p == nil || p.Pool == nil {
		return nil
	}
	gauges := []struct {
		name string
		help string
		read func(*pgxpool.Stat) int32
	}{
		{"crm_db_pool_total_conns", "Open connections in the pgx pool.", (*pgxpool.Stat).TotalConns},
		{"crm_db_pool_idle_conns", "Idle connections in the pgx pool.", (*pgxpool.Stat).IdleConns},
		{"crm_db_pool_acquired_conns", "Connections currently checked out of the pgx pool.", (*pgxpool.Stat).AcquiredConns},
		{"crm_db_pool_max_conns", "Configured pgx pool size.", (*pgxpool.Stat).MaxConns},
	}
	for _, g := range gauges {
		read := g.read
		gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: g.name, Help: g.help}, func() float64 {
			return float64(read(p.Pool.Stat()))
		})
		if err := reg.Register(gauge); err != nil {
			return err
		}
	}
	return nil
}

// Close releases pool resources.
func (p *Postgres) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// Ping verifies database connectivity for the readiness probe.
func (p *Postgres) Ping(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return errors.New("postgres pool not configured")
	}
	return p.Pool.Ping(ctx)
}
