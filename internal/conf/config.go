package conf

import (
	"fmt"
)

type Bootstrap struct {
	Server          *Server          `yaml:"server" json:"server"`
	Data            *Data            `yaml:"data" json:"data"`
	Client          *Client          `yaml:"client" json:"client"`
	RecurringOrders *RecurringOrders `yaml:"recurring_orders" json:"recurring_orders"`
	Log             *Log             `yaml:"log" json:"log"`
}

type Server struct {
	Http struct {
		Addr    string `yaml:"addr" json:"addr"`
		Timeout string `yaml:"timeout" json:"timeout"`
	} `yaml:"http" json:"http"`
}

type Data struct {
	Database struct {
		Driver string `yaml:"driver" json:"driver"`
		Source string `yaml:"source" json:"source"`
	} `yaml:"database" json:"database"`
	Redis struct {
		Addr         string `yaml:"addr" json:"addr"`
		Password     string `yaml:"password" json:"password"`
		Db           int32  `yaml:"db" json:"db"`
		ReadTimeout  string `yaml:"read_timeout" json:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout" json:"write_timeout"`
	} `yaml:"redis" json:"redis"`
}

type Client struct {
	PaymentGateway *PaymentGateway `yaml:"payment_gateway" json:"payment_gateway"`
}

type PaymentGateway struct {
	Addr    string `yaml:"addr" json:"addr"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

// RecurringOrders 循环订单引擎配置
type RecurringOrders struct {
	// RetryInterval 处理失败后的重试间隔（秒数、ISO-8601 或相对时间表达式）
	RetryInterval string `yaml:"retry_interval" json:"retry_interval"`
	// MaxErrorCount 连续失败上限，0 表示不限制
	MaxErrorCount int `yaml:"max_error_count" json:"max_error_count"`
	// ImminenceInterval 临近提醒窗口
	ImminenceInterval string `yaml:"imminence_interval" json:"imminence_interval"`
	// ChargeTimeout 单次扣款调用超时
	ChargeTimeout string `yaml:"charge_timeout" json:"charge_timeout"`
}

type Log struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	Output     string `yaml:"output" json:"output"`
	FilePath   string `yaml:"file_path" json:"file_path"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// Validate validates the configuration
func (b *Bootstrap) Validate() error {
	if b.Server == nil {
		return fmt.Errorf("server configuration is required")
	}
	if b.Server.Http.Addr == "" {
		return fmt.Errorf("server.http.addr is required")
	}
	if b.Data == nil {
		return fmt.Errorf("data configuration is required")
	}
	if b.Data.Database.Source == "" {
		return fmt.Errorf("data.database.source is required")
	}
	if b.Client == nil || b.Client.PaymentGateway == nil || b.Client.PaymentGateway.Addr == "" {
		return fmt.Errorf("client.payment_gateway.addr is required")
	}
	if b.RecurringOrders == nil {
		return fmt.Errorf("recurring_orders configuration is required")
	}
	if b.Log == nil {
		return fmt.Errorf("log configuration is required")
	}
	return nil
}
