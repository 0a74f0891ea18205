package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/config"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/cooldown"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/db"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/logger"

	"go.uber.org/zap"
)

var (
	_ cooldown.Store = (*MemoryStore)(nil)
	_ cooldown.Store = (*RedisStore)(nil)
	_ cooldown.Store = (*GormStore)(nil)
	_ cooldown.Store = (*MongoStore)(nil)
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"

	defaultMongoDatabase   = "resend"
	defaultMongoCollection = "cooldown_kv"
)

// Open 根据配置创建存储，空 driver 使用内存
func Open(ctx context.Context, cfg config.StoreConfig) (cooldown.Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}
	logger.Info("open cooldown store", zap.String("driver", driver))

	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil

	case DriverRedis:
		rdb, err := db.GetRedisConn("cooldown", cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return NewRedisStore(rdb,
			WithPrefix(cfg.Prefix),
			WithTTL(time.Duration(cfg.TTLSeconds)*time.Second),
		), nil

	case DriverMySQL, DriverPostgres:
		sqlCfg := cfg.SQL
		sqlCfg.Dialect = driver
		conn, err := db.OpenSQL(sqlCfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", driver, err)
		}
		store := NewGormStore(conn)
		if err := store.AutoMigrate(ctx); err != nil {
			return nil, fmt.Errorf("%s migrate: %w", driver, err)
		}
		return store, nil

	case DriverMongo:
		client, err := db.GetMongoConn(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		database, collection := cfg.Mongo.Database, cfg.Mongo.Collection
		if database == "" {
			database = defaultMongoDatabase
		}
		if collection == "" {
			collection = defaultMongoCollection
		}
		return NewMongoStore(client.Database(database).Collection(collection)), nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
