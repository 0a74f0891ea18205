package cooldown

import "context"

// Store 持久化键值存储
// 读写失败直接返回给调用方，控制器不做重试，也没有纯内存降级
type Store interface {
	// Get 读取单个键，不存在时 ok=false 且 err=nil
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// MultiGet 批量读取，结果只包含存在的键
	MultiGet(ctx context.Context, keys []string) (map[string]string, error)

	// MultiSet 批量写入
	MultiSet(ctx context.Context, entries map[string]string) error

	// MultiRemove 批量删除，不存在的键忽略
	MultiRemove(ctx context.Context, keys []string) error
}
