package transaction

import (
	"context"

	"gorm.io/gorm"
)

type txContextKey struct{}

// WithTransaction 把事务放进 ctx，下游的 store / repo 通过 GetTransactionOrDB 取用
func WithTransaction(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// GetTransactionOrDB ctx 中有事务时返回事务，否则返回 defaultDB，两者都绑定 ctx
func GetTransactionOrDB(ctx context.Context, defaultDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return defaultDB.WithContext(ctx)
}
