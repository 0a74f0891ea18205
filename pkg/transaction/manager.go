package transaction

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// Manager 管理数据库事务生命周期和上下文传播
type Manager struct {
	db *gorm.DB
}

// NewManager 创建事务管理器，operation 返回错误时回滚，否则提交
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// Execute 在事务中执行业务操作
// - ctx: 上下文，已携带事务时嵌套为 savepoint
// - opts: 事务隔离级别选项，可为 nil
// - operation: 需要在事务中执行业务逻辑的函数
func (m *Manager) Execute(
	ctx context.Context,
	opts *sql.TxOptions,
	operation func(ctx context.Context) error,
) error {
	fc := func(tx *gorm.DB) error {
		// 将事务实例注入上下文
		return operation(WithTransaction(ctx, tx))
	}
	if opts == nil {
		return GetTransactionOrDB(ctx, m.db).Transaction(fc)
	}
	return GetTransactionOrDB(ctx, m.db).Transaction(fc, opts)
}
