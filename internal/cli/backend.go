package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/config"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/database"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/notify"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/repository"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/repository/sqlite"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/service"
)

// backend is an opened and migrated Registration Store.
type backend struct {
	events service.EventStore
	regs   service.RegistrationStore
	close  func()
}

func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("opened sqlite store", zap.String("path", cfg.SQLitePath))
		return &backend{
			events: sqlite.NewEventRepository(db),
			regs:   sqlite.NewRegistrationRepository(db),
			close:  func() { _ = db.Close() },
		}, nil
	default:
		pool, err := database.NewPool(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("connected to postgres")
		return &backend{
			events: repository.NewEventRepository(pool),
			regs:   repository.NewRegistrationRepository(pool),
			close:  pool.Close,
		}, nil
	}
}

// newNotifier publishes to Redis when REDIS_URL is set and logs otherwise.
// The returned dispatcher must be Run for messages to be delivered.
func newNotifier(ctx context.Context, cfg *config.Config, log *zap.Logger) (*notify.Dispatcher, func(), error) {
	var (
		next    notify.Notifier = notify.NewLogNotifier(log)
		cleanup                 = func() {}
	)
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(redisOpts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		next = notify.NewRedisPublisher(client, cfg.NotifyChannel)
		cleanup = func() { _ = client.Close() }
		log.Info("publishing notifications to redis", zap.String("channel", cfg.NotifyChannel))
	}
	return notify.NewDispatcher(next, cfg.NotifyWorkers, cfg.NotifyBuffer, log), cleanup, nil
}
