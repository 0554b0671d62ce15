package errors

import (
	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	i18nPkg "github.com/gaoyong06/go-pkg/middleware/i18n"
)

func init() {
	// 初始化全局错误管理器（使用项目特定的配置）
	pkgErrors.InitGlobalErrorManager("i18n", i18nPkg.Language)
}

// 循环订单服务错误码定义
// 错误码格式：SSMMEE (6位数字)，其中 SS=14 表示 recurring-orders-service
// 模块划分：
//   01: 时间间隔模块
//   02: 循环排期模块
//   03: 订单模块
//   04: 支付模块

// 时间间隔模块 (140100-140199)
const (
	// ErrCodeInvalidInterval 时间间隔无法解析错误
	ErrCodeInvalidInterval = 140101
	// ErrCodeMissingInterval 未设置循环间隔错误
	ErrCodeMissingInterval = 140102
)

// 循环排期模块 (140200-140299)
const (
	// ErrCodeNotRecurring 订单没有循环排期错误
	ErrCodeNotRecurring = 140201
	// ErrCodeInvalidStatus 无效的循环状态错误
	ErrCodeInvalidStatus = 140202
	// ErrCodeCannotPauseStatus 当前状态无法暂停循环错误
	ErrCodeCannotPauseStatus = 140203
	// ErrCodeCannotResumeStatus 当前状态无法恢复循环错误
	ErrCodeCannotResumeStatus = 140204
	// ErrCodeCannotCancelStatus 当前状态无法取消循环错误
	ErrCodeCannotCancelStatus = 140205
	// ErrCodeErrorLimitReached 连续失败次数达到上限错误
	ErrCodeErrorLimitReached = 140206
	// ErrCodeRecurrenceBusy 循环记录正在被另一个进程处理错误
	ErrCodeRecurrenceBusy = 140207
)

// 订单模块 (140300-140399)
const (
	// ErrCodeOrderNotFound 订单不存在错误
	ErrCodeOrderNotFound = 140301
	// ErrCodeOrderSaveFailed 订单保存失败错误
	ErrCodeOrderSaveFailed = 140302
	// ErrCodeOrderAlreadyCompleted 订单已完成错误
	ErrCodeOrderAlreadyCompleted = 140303
)

// 支付模块 (140400-140499)
const (
	// ErrCodePaymentSourceNotFound 支付方式不存在错误
	ErrCodePaymentSourceNotFound = 140401
	// ErrCodeChargeFailed 扣款失败错误
	ErrCodeChargeFailed = 140402
)
