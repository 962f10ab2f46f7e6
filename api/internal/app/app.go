// Package app wires configuration into engines, the analyzer and the
// optional verdict store. Both binaries build on it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"safechat/api/internal/config"
	"safechat/api/internal/httpserver"
	"safechat/api/internal/llm"
	"safechat/api/internal/llm/deepseek"
	"safechat/api/internal/llm/gemini"
	"safechat/api/internal/llm/openai"
	"safechat/api/internal/store"
	"safechat/api/internal/toxicity"
)

type App struct {
	Cfg      *config.Config
	Log      *logrus.Logger
	Engines  llm.Engines
	Default  llm.Engine
	Analyzer *toxicity.Analyzer
	Registry *prometheus.Registry

	db    *sql.DB
	cache *store.VerdictRepo
}

func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: log, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	guard := func(e llm.Engine) llm.Engine {
		return llm.WithBreaker(e, cfg.BreakerMaxFailures, cfg.BreakerTimeout, log)
	}
	a.Engines = llm.Engines{
		Gemini:   guard(gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)),
		OpenAI:   guard(openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)),
		Deepseek: guard(deepseek.New(cfg.DeepseekAPIKey, cfg.DeepseekModel)),
	}
	def, err := a.Engines.ByName(cfg.DefaultEngine)
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_ENGINE: %w", err)
	}
	a.Default = def

	opts := []toxicity.Option{
		toxicity.WithPolicy(cfg.FailurePolicy),
		toxicity.WithMetrics(toxicity.NewMetrics(a.Registry)),
		toxicity.WithLogger(log),
		toxicity.WithTimeout(cfg.ModelTimeout),
	}
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := store.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		repo := store.NewVerdictRepo(db, cfg.VerdictCacheTTL)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db, a.cache = db, repo
		opts = append(opts, toxicity.WithCache(repo))
		log.WithField("db", SafeDSNSummary(dsn)).Info("verdict cache enabled")
	}
	a.Analyzer = toxicity.NewAnalyzer(def, opts...)

	log.WithFields(logrus.Fields{
		"engine": def.Name(),
		"model":  def.GetModel(),
		"policy": cfg.FailurePolicy,
	}).Info("analyzer ready")
	return a, nil
}

// HealthCheck pings the database when one is configured.
func (a *App) HealthCheck() httpserver.HealthCheck {
	if a.db == nil {
		return nil
	}
	return a.db.PingContext
}

// PurgeLoop drops expired verdicts every interval until ctx is done.
func (a *App) PurgeLoop(ctx context.Context, every time.Duration) {
	if a.cache == nil || a.Cfg.VerdictCacheTTL <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.cache.PurgeOlderThan(ctx, a.Cfg.VerdictCacheTTL)
			if err != nil {
				a.Log.WithError(err).Warn("verdict purge failed")
				continue
			}
			if n > 0 {
				a.Log.WithField("rows", n).Info("purged expired verdicts")
			}
		}
	}
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// SafeDSNSummary describes a DSN without its password.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
