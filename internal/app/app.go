// Package app wires a config.Config into a ready reconciliation engine and its satellites.
package app

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"assignment-status/internal/config"
	"assignment-status/internal/events"
	"assignment-status/internal/logging"
	"assignment-status/internal/metrics"
	"assignment-status/internal/providers"
	"assignment-status/internal/providers/boltstore"
	"assignment-status/internal/providers/portal"
	"assignment-status/internal/providers/sqlstore"
	"assignment-status/internal/reconcile"
	"assignment-status/internal/sftpclient"
)

const (
	SourcePortal = "portal"
	SourceBolt   = "bolt"
	SourceSQL    = "sql"
)

type App struct {
	Engine  *reconcile.Engine
	Metrics *metrics.Registry
	Logger  *zap.Logger

	source string
	closer func() error
}

// New opens the configured source and builds the engine on top of it.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	log = logging.OrNop(log)

	src, closer, err := OpenSource(cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.NewRegistry()
	eng := reconcile.New(reconcile.SourcesFrom(src), EngineOptions(cfg, log, m))

	log.Info("engine ready",
		zap.String("source", normalizeSource(cfg.Source)),
		zap.Int("course_workers", cfg.CourseWorkers),
		zap.Int("submission_workers", cfg.SubmissionWorkers),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Bool("strict", cfg.Strict))

	return &App{
		Engine:  eng,
		Metrics: m,
		Logger:  log,
		source:  normalizeSource(cfg.Source),
		closer:  closer,
	}, nil
}

func (a *App) Source() string { return a.source }

func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

// OpenSource returns the portal view selected by cfg.Source and a func releasing it.
func OpenSource(cfg config.Config) (providers.Portal, func() error, error) {
	switch normalizeSource(cfg.Source) {
	case SourcePortal:
		if strings.TrimSpace(cfg.PortalBaseURL) == "" {
			return nil, nil, errors.New("app: missing PORTAL_BASE_URL")
		}
		c := portal.New(cfg.PortalBaseURL, cfg.PortalToken, cfg.PortalTimeout)
		if cfg.PortalRetryAttempts > 0 {
			c.Retry.MaxAttempts = cfg.PortalRetryAttempts
		}
		return c, func() error { return nil }, nil
	case SourceBolt:
		s, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "app: open bolt source %s", cfg.BoltPath)
		}
		return s, s.Close, nil
	case SourceSQL:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, nil, errors.New("app: missing DATABASE_URL")
		}
		s, err := sqlstore.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "app: open sql source")
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("app: unknown SOURCE %q (want portal, bolt or sql)", cfg.Source)
}

func normalizeSource(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return SourcePortal
	}
	return v
}

// EngineOptions maps config onto engine options; unset values keep the engine defaults.
func EngineOptions(cfg config.Config, log *zap.Logger, m *metrics.Registry) reconcile.Options {
	opts := reconcile.DefaultOptions()
	if cfg.CourseWorkers > 0 {
		opts.CourseWorkers = cfg.CourseWorkers
	}
	if cfg.SubmissionWorkers > 0 {
		opts.SubmissionWorkers = cfg.SubmissionWorkers
	}
	opts.PageSize = cfg.AssignmentPageSize
	opts.Strict = cfg.Strict
	opts.Cache = reconcile.NewCache(cfg.CacheTTL)
	opts.Logger = log
	opts.Metrics = m
	return opts
}

// Listener returns the change-feed listener for the engine cache, or nil when no brokers
// are configured or caching is disabled.
func (a *App) Listener(cfg config.Config) *events.Listener {
	if len(cfg.KafkaBrokers) == 0 || a.Engine.Cache() == nil {
		return nil
	}
	return events.NewKafkaListener(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID,
		a.Engine.Cache(), a.Logger, a.Metrics)
}

func SFTPConfig(cfg config.Config) sftpclient.Config {
	return sftpclient.Config{
		Host:                  cfg.SFTPHost,
		Port:                  cfg.SFTPPort,
		User:                  cfg.SFTPUser,
		Pass:                  cfg.SFTPPass,
		RemoteDir:             cfg.SFTPDir,
		KnownHostsPath:        cfg.SFTPKnownHosts,
		InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
	}
}
