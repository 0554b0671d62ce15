package biz

import (
	"context"
	"time"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewRecurringOrderUsecase,
	NewEvents,
	NewSystemClock,
)

// Transaction 数据层事务接口
type Transaction interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock 可注入的时钟（便于测试重试/排期逻辑）
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewSystemClock 创建系统时钟
func NewSystemClock() Clock { return systemClock{} }

// Locker 按 key 获取分布式锁，返回释放函数
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(), err error)
}
