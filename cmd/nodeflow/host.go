package main

import (
	"fmt"
	"log/slog"

	"github.com/hgl-pong/baklavajs-sub000"
	"github.com/hgl-pong/baklavajs-sub000/internal/config"
	"github.com/hgl-pong/baklavajs-sub000/pkg/adapters/file"
	"github.com/hgl-pong/baklavajs-sub000/pkg/adapters/memory"
	"github.com/hgl-pong/baklavajs-sub000/pkg/adapters/redis"
	"github.com/hgl-pong/baklavajs-sub000/pkg/persistence/middleware"
	"github.com/hgl-pong/baklavajs-sub000/pkg/ports"
	"github.com/hgl-pong/baklavajs-sub000/pkg/registry"
	"github.com/spf13/cobra"
)

// newStore builds the configured graph store wrapped in extra, then in the
// redaction and encryption middleware the configuration asks for. The Redis
// backend also returns a distributed locker sharing its client.
func newStore(cfg *config.Config, logger *slog.Logger, extra ...middleware.Middleware) (ports.GraphStore, ports.DistributedLocker, error) {
	var (
		store  ports.GraphStore
		locker ports.DistributedLocker
	)
	switch cfg.Store.Backend {
	case config.BackendMemory:
		store = memory.NewStore()
	case config.BackendFile:
		store = file.New(cfg.Store.Dir, file.WithLogger(logger))
	case config.BackendRedis:
		rc := cfg.Store.Redis
		rs := redis.New(rc.Addr, rc.Password, rc.DB, redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL))
		store, locker = rs, redis.NewLocker(rs.Client(), rc.Prefix)
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	mws := append([]middleware.Middleware(nil), extra...)
	if len(cfg.Store.Redact) > 0 {
		mw, err := middleware.NewRedactMiddleware(cfg.Store.Redact)
		if err != nil {
			return nil, nil, err
		}
		mws = append(mws, mw)
	}
	active, fallback, err := cfg.Store.Keys()
	if err != nil {
		return nil, nil, err
	}
	if active != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			return nil, nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), locker, nil
}

// newHost wires a Host from the configuration. Extra options are applied last.
func newHost(cfg *config.Config, logger *slog.Logger, storeMW []middleware.Middleware, opts ...nodeflow.Option) (*nodeflow.Host, error) {
	store, locker, err := newStore(cfg, logger, storeMW...)
	if err != nil {
		return nil, err
	}

	reg := registry.NewWithBuiltins()
	if err := reg.SetDefaultType(cfg.Engine.Default); err != nil {
		return nil, fmt.Errorf("engine.default: %w", err)
	}

	base := []nodeflow.Option{
		nodeflow.WithStore(store),
		nodeflow.WithRegistry(reg),
		nodeflow.WithLogger(logger),
		nodeflow.WithMaxSteps(cfg.Engine.MaxSteps),
	}
	if locker != nil {
		base = append(base, nodeflow.WithDistributedLocker(locker), nodeflow.WithLockTTL(cfg.Store.Redis.LockTTL))
	}
	return nodeflow.New(append(base, opts...)...)
}

// hostFromFlags loads the configuration and builds a Host with no hooks.
func hostFromFlags(cmd *cobra.Command) (*nodeflow.Host, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return newHost(cfg, logger, nil)
}
