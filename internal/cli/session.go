package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/artic-select/internal/config"
	"github.com/Sternrassler/artic-select/pkg/cache"
	"github.com/Sternrassler/artic-select/pkg/client"
	"github.com/Sternrassler/artic-select/pkg/view"
)

// session bundles one selection controller with the resources behind it.
type session struct {
	ctrl  *view.Controller
	redis *redis.Client
}

// openSession builds the API client, the optional Redis response cache and
// the selection controller from cfg.
func openSession(ctx context.Context, cfg config.Config) (*session, error) {
	ccfg := cfg.Client()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		ccfg.Cache = cache.NewManager(rdb)
	}

	api, err := client.New(ccfg)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, fmt.Errorf("create API client: %w", err)
	}

	return &session{
		ctrl:  view.New(api, cfg.View()),
		redis: rdb,
	}, nil
}

func (s *session) Close() {
	s.ctrl.Close()
	if s.redis != nil {
		_ = s.redis.Close()
	}
}
