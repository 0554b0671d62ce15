package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"xinyuan_tech/recurring-orders-service/internal/biz"
	"xinyuan_tech/recurring-orders-service/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

// paymentGatewayClient 支付网关 HTTP 客户端
type paymentGatewayClient struct {
	addr   string
	client *http.Client
	log    *log.Helper
}

// NewPaymentGatewayClient 创建支付网关客户端
func NewPaymentGatewayClient(c *conf.Bootstrap, logger log.Logger) biz.PaymentGateway {
	addr := ""
	timeout := 30 * time.Second
	if c != nil && c.Client != nil && c.Client.PaymentGateway != nil {
		addr = c.Client.PaymentGateway.Addr
		if d, err := time.ParseDuration(c.Client.PaymentGateway.Timeout); err == nil && d > 0 {
			timeout = d
		}
	}
	return &paymentGatewayClient{
		addr:   addr,
		client: &http.Client{Timeout: timeout},
		log:    log.NewHelper(logger),
	}
}

// BuildPaymentForm 从支付方式构造扣款表单
func (c *paymentGatewayClient) BuildPaymentForm(source *biz.PaymentSource) *biz.PaymentForm {
	return &biz.PaymentForm{
		GatewayID: source.GatewayID,
		Token:     source.Token,
	}
}

// chargeRequest 扣款请求体
type chargeRequest struct {
	OrderNumber string  `json:"order_number"`
	GatewayID   uint64  `json:"gateway_id"`
	Token       string  `json:"token"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
}

// chargeResponse 扣款响应体
type chargeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Charge 对订单发起一次扣款
//
// 超时和网络错误都按扣款失败返回，由调用方决定是否重试。
func (c *paymentGatewayClient) Charge(ctx context.Context, order *biz.Order, form *biz.PaymentForm) error {
	body := chargeRequest{
		OrderNumber: order.Number,
		GatewayID:   form.GatewayID,
		Token:       form.Token,
		Amount:      order.ItemTotal(),
		Currency:    order.PaymentCurrency,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr+"/api/payments/charge", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var result chargeResponse
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read charge response: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("failed to decode charge response: %w", err)
	}
	if !result.Success {
		c.log.Warnf("Charge declined for order %s: %s", order.Number, result.Message)
		return fmt.Errorf("charge declined: %s", result.Message)
	}
	return nil
}
