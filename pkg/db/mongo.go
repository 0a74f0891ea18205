package db

import (
	"context"
	"sync"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var mongoConn = make(map[string]*mongo.Client)
var mongoMutex sync.Mutex

// GetMongoConn 按链接复用 mongo client
func GetMongoConn(ctx context.Context, cfg config.MongoDB) (*mongo.Client, error) {
	mongoMutex.Lock()
	defer mongoMutex.Unlock()

	if conn, ok := mongoConn[cfg.Link]; ok {
		return conn, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Link).SetMaxPoolSize(120))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	mongoConn[cfg.Link] = client
	return client, nil
}

// CloseMongo 断开所有缓存的 client
func CloseMongo(ctx context.Context) {
	mongoMutex.Lock()
	defer mongoMutex.Unlock()
	for link, client := range mongoConn {
		_ = client.Disconnect(ctx)
		delete(mongoConn, link)
	}
}
