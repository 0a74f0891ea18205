package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/db/objects"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/transaction"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 基于 cooldown_kv 表的存储，支持 mysql / postgres
// ctx 中携带事务时（transaction.Manager）在该事务内执行
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB 底层连接，供同库的其他表复用
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return transaction.GetTransactionOrDB(ctx, s.db)
}

// AutoMigrate 建表
func (s *GormStore) AutoMigrate(ctx context.Context) error {
	return s.conn(ctx).AutoMigrate(&objects.CooldownKV{})
}

func (s *GormStore) Get(ctx context.Context, key string) (string, bool, error) {
	var row objects.CooldownKV
	err := s.conn(ctx).Where("store_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query %s: %w", key, err)
	}
	return row.Value, true, nil
}

func (s *GormStore) MultiGet(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var rows []objects.CooldownKV
	if err := s.conn(ctx).Where("store_key IN ?", keys).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query cooldown_kv: %w", err)
	}
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// MultiSet 一条 upsert 语句写入全部字段
func (s *GormStore) MultiSet(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]objects.CooldownKV, 0, len(entries))
	for k, v := range entries {
		rows = append(rows, objects.CooldownKV{Key: k, Value: v})
	}
	// 固定顺序，减少并发 upsert 时的死锁
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"store_value", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert cooldown_kv: %w", err)
	}
	return nil
}

func (s *GormStore) MultiRemove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.conn(ctx).Where("store_key IN ?", keys).Delete(&objects.CooldownKV{}).Error; err != nil {
		return fmt.Errorf("delete cooldown_kv: %w", err)
	}
	return nil
}
