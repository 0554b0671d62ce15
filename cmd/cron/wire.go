//go:build wireinject
// +build wireinject

package main

import (
	"os"
	"xinyuan_tech/recurring-orders-service/internal/biz"
	"xinyuan_tech/recurring-orders-service/internal/conf"
	"xinyuan_tech/recurring-orders-service/internal/data"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// CronApp Cron 应用结构
type CronApp struct {
	recurringOrderUsecase *biz.RecurringOrderUsecase
}

// wireApp 初始化应用
func wireApp(*conf.Bootstrap) (*CronApp, func(), error) {
	panic(wire.Build(
		// Logger
		newLogger,

		// Data 层
		data.ProviderSet,

		// Biz 层
		biz.ProviderSet,

		// App 结构
		wire.Struct(new(CronApp), "*"),
	))
}

// newLogger 创建 logger
func newLogger(c *conf.Bootstrap) log.Logger {
	return log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "recurring-orders-cron",
	)
}
