package visit

import (
	"context"
	"errors"

	"linklock/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned when a visit id resolves to no live
// session, either because it never existed or because its TTL expired.
var ErrSessionNotFound = errors.New("visit session not found")

// Store holds live visit sessions. Sessions are ephemeral; losing one means
// the visitor restarts the gate, never that revenue is double-credited.
type Store interface {
	Get(ctx context.Context, visitID string) (*Visit, error)
	Save(ctx context.Context, visit *Visit) error
	Delete(ctx context.Context, visitID string) error
}

type StoreParams struct {
	fx.In
	Cfg   *config.Config
	Redis *redis.Client
}

func NewStore(p StoreParams) Store {
	switch p.Cfg.Session.Type {
	case "memory":
		return NewMemoryStore()
	case "redis":
		return NewRedisStore(p.Redis, p.Cfg.Session.TTL)
	default:
		zap.L().Warn("unknown session store type, using redis",
			zap.String("type", p.Cfg.Session.Type),
		)
		return NewRedisStore(p.Redis, p.Cfg.Session.TTL)
	}
}
