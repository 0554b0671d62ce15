package data

import (
	"context"
	"xinyuan_tech/recurring-orders-service/internal/biz"
	"xinyuan_tech/recurring-orders-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
)

// redsyncLocker 基于 redsync 的分布式锁实现
type redsyncLocker struct {
	rs  *redsync.Redsync
	log *log.Helper
}

// NewLocker 创建分布式锁
func NewLocker(rs *redsync.Redsync, logger log.Logger) biz.Locker {
	return &redsyncLocker{
		rs:  rs,
		log: log.NewHelper(logger),
	}
}

// TryLock 尝试获取锁，只尝试一次，失败说明其他进程正在处理
func (l *redsyncLocker) TryLock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(
		key,
		redsync.WithExpiry(constants.RecurrenceLockExpiration),
		redsync.WithTries(constants.RecurrenceLockRetries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}
	unlock := func() {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			l.log.Warnf("Failed to unlock %s: %v", key, err)
		}
	}
	return unlock, nil
}
