package store

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/guidebot/pkg/component/database"
	"github.com/kart-io/guidebot/pkg/component/mongodb"
	"github.com/kart-io/guidebot/pkg/component/storage"
	dbopts "github.com/kart-io/guidebot/pkg/options/database"
	mongoopts "github.com/kart-io/guidebot/pkg/options/mongodb"
	storeopts "github.com/kart-io/guidebot/pkg/options/store"
)

// Config 选择并配置存储后端。
type Config struct {
	Store    *storeopts.Options
	MongoDB  *mongoopts.Options
	Database *dbopts.Options
}

// New 按配置创建存储。打开的连接注册到 mgr，由调用方在退出时统一关闭。
func New(ctx context.Context, cfg *Config, mgr *storage.Manager) (GuideStore, error) {
	switch cfg.Store.Backend {
	case storeopts.BackendMemory:
		logger.Infow("guide store initialized", "backend", storeopts.BackendMemory)
		return NewMemoryStore(), nil

	case storeopts.BackendMongoDB:
		client, err := mongodb.New(ctx, cfg.MongoDB)
		if err != nil {
			return nil, ErrStoreUnavailable.WithCause(err)
		}
		if err := mgr.Register("guide-store", client); err != nil {
			_ = client.Close()
			return nil, err
		}
		s, err := NewMongoStore(ctx, client.Collection(cfg.MongoDB.Collection))
		if err != nil {
			return nil, err
		}
		logger.Infow("guide store initialized",
			"backend", storeopts.BackendMongoDB,
			"database", cfg.MongoDB.Database,
			"collection", cfg.MongoDB.Collection,
		)
		return s, nil

	case storeopts.BackendSQL:
		client, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, ErrStoreUnavailable.WithCause(err)
		}
		if err := mgr.Register("guide-store", client); err != nil {
			_ = client.Close()
			return nil, err
		}
		s, err := NewSQLStore(ctx, client.DB())
		if err != nil {
			return nil, err
		}
		logger.Infow("guide store initialized",
			"backend", storeopts.BackendSQL,
			"driver", cfg.Database.Driver,
		)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
}
