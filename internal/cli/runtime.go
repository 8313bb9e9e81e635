package cli

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gzhole/dataclassify/internal/classify"
	"github.com/gzhole/dataclassify/internal/config"
	"github.com/gzhole/dataclassify/internal/logger"
	"github.com/gzhole/dataclassify/internal/metrics"
	"github.com/gzhole/dataclassify/internal/policy"
)

const metricsNamespace = "dataclassify"

// runtime bundles what every classifying command needs: configuration, the
// operational logger, the merged rule set and an engine wired to metrics
// and the audit log.
type runtime struct {
	cfg     *config.Config
	log     *zap.Logger
	rules   *policy.RuleSet
	packs   []policy.PackInfo
	metrics *metrics.Collector
	audit   *logger.AuditLogger
	engine  *classify.Engine
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile, rulesPath, logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// loadRuleSet reads the rules file and merges enabled packs.
func loadRuleSet(cfg *config.Config) (*policy.RuleSet, []policy.PackInfo, error) {
	rs, err := policy.Load(cfg.Rules.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rules: %w", err)
	}
	rs, infos, err := policy.LoadPacks(cfg.Rules.PacksDir, rs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load packs: %w", err)
	}
	return rs, infos, nil
}

// newRuntime builds the engine. The audit log is opened only when enabled
// in config and requested by the caller.
func newRuntime(withAudit bool) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	zl, err := logger.NewZap(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	rs, infos, err := loadRuleSet(cfg)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.Err != nil {
			zl.Warn("skipping unreadable pack", zap.String("path", info.Path), zap.Error(info.Err))
		}
	}

	rt := &runtime{
		cfg:     cfg,
		log:     zl,
		rules:   rs,
		packs:   infos,
		metrics: metrics.NewCollector(metricsNamespace),
	}

	opts, err := rs.Options(time.Now())
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		classify.WithHistoryLimit(cfg.Engine.HistoryLimit),
		classify.WithLogger(zl),
		classify.WithMetrics(rt.metrics),
	)

	if withAudit && cfg.Audit.Enabled {
		audit, err := logger.New(cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		rt.audit = audit
		opts = append(opts, classify.WithRecorder(audit))
	}

	engine, err := classify.NewEngine(opts...)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}
	rt.engine = engine

	zl.Debug("engine ready",
		zap.Int("rules", len(engine.Rules())),
		zap.Int("packs", len(infos)),
		zap.Bool("audit", rt.audit != nil),
	)
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.audit != nil {
		if err := rt.audit.Close(); err != nil {
			rt.log.Warn("closing audit log", zap.Error(err))
		}
	}
	_ = rt.log.Sync()
}
