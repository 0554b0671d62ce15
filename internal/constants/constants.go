package constants

import "time"

// 分页相关常量
const (
	// DefaultPageSize 默认分页大小
	DefaultPageSize = 10
	// MaxPageSize 最大分页大小
	MaxPageSize = 100
)

// 循环订单状态
const (
	// StatusActive 活跃（已排期）
	StatusActive = "active"
	// StatusUnscheduled 未排期（派生状态，不落库）
	StatusUnscheduled = "unscheduled"
	// StatusPaused 已暂停
	StatusPaused = "paused"
	// StatusCancelled 已取消
	StatusCancelled = "cancelled"
	// StatusError 出错（等待重试或人工干预）
	StatusError = "error"
)

// 循环处理错误原因
const (
	ErrorNoPaymentSource      = "noPaymentSource"
	ErrorPaymentIssue         = "paymentIssue"
	ErrorPaymentSourceExpired = "paymentSourceExpired"
	ErrorProductUnavailable   = "productUnavailable"
	ErrorDiscountUnavailable  = "discountUnavailable"
	ErrorUnknown              = "unknown"
)

// 单次循环处理结果
const (
	// OutcomeSuccess 生成订单并扣款成功
	OutcomeSuccess = "success"
	// OutcomeLockBusy 未抢到分布式锁，另一个进程正在处理
	OutcomeLockBusy = "lockBusy"
	// OutcomeNotRecurring 订单没有循环排期，调用方错误
	OutcomeNotRecurring = "notRecurring"
	// OutcomeErrorLimitReached 连续失败次数达到上限，需要人工复位
	OutcomeErrorLimitReached = "errorLimitReached"
	// OutcomeNoPaymentSource 找不到支付方式
	OutcomeNoPaymentSource = "noPaymentSource"
	// OutcomePaymentIssue 扣款失败（拒绝、异常、超时）
	OutcomePaymentIssue = "paymentIssue"
	// OutcomePersistenceFailure 生成订单保存失败
	OutcomePersistenceFailure = "persistenceFailure"
	// OutcomeUnrecordedSuccess 扣款成功但结果落库失败，需要人工对账
	OutcomeUnrecordedSuccess = "unrecordedSuccess"
	// OutcomeDryRun 测试模式，符合条件但未实际执行
	OutcomeDryRun = "dryRun"
)

// 分布式锁相关常量
const (
	// RecurrenceLockKeyPrefix 循环处理锁前缀
	RecurrenceLockKeyPrefix = "recurring_order_lock:order:"
	// RecurrenceLockExpiration 循环处理锁过期时间
	RecurrenceLockExpiration = 10 * time.Minute
	// RecurrenceLockRetries 循环处理锁重试次数
	RecurrenceLockRetries = 1
)

// 默认配置
const (
	// DefaultRetryInterval 默认失败重试间隔
	DefaultRetryInterval = "P1D"
	// DefaultImminenceInterval 默认临近提醒窗口
	DefaultImminenceInterval = "P1W"
	// DefaultChargeTimeout 默认扣款超时时间
	DefaultChargeTimeout = time.Minute
)
