package db

import (
	"sync"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/config"

	"github.com/go-redis/redis/v8"
)

var redisConn = make(map[string]*redis.Client)
var redisMutex sync.Mutex

// GetRedisConn 按名称复用 redis 连接，首次调用时创建
func GetRedisConn(name string, cfg config.RedisConfig) (*redis.Client, error) {
	redisMutex.Lock()
	defer redisMutex.Unlock()

	if rdb, ok := redisConn[name]; ok {
		return rdb, nil
	}

	var opt *redis.Options
	if cfg.Url != "" {
		parsed, err := redis.ParseURL(cfg.Url)
		if err != nil {
			return nil, err
		}
		opt = parsed
	} else {
		opt = &redis.Options{
			Addr:     cfg.Addr(),
			Password: cfg.PassWord,
			DB:       cfg.DB,
		}
	}

	rdb := redis.NewClient(opt)
	redisConn[name] = rdb
	return rdb, nil
}

// CloseRedis 关闭所有缓存的连接
func CloseRedis() {
	redisMutex.Lock()
	defer redisMutex.Unlock()
	for name, rdb := range redisConn {
		_ = rdb.Close()
		delete(redisConn, name)
	}
}
