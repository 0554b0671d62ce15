package server

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"strconv"

	"github.com/gaoyong06/go-pkg/health"
	"github.com/gaoyong06/go-pkg/middleware/i18n"

	"xinyuan_tech/recurring-orders-service/internal/conf"
	"xinyuan_tech/recurring-orders-service/internal/service"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Bootstrap, svc *service.RecurringOrderService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			// 添加 i18n 中间件
			i18n.Middleware(),
		),
		http.ErrorEncoder(customErrorEncoder),
	}
	if c.Server.Http.Addr != "" {
		opts = append(opts, http.Address(c.Server.Http.Addr))
	}
	srv := http.NewServer(opts...)

	registerRoutes(srv, svc)

	// 注册健康检查端点
	srv.Route("/").GET("/health", func(ctx http.Context) error {
		return ctx.Result(200, health.NewResponse("recurring-orders-service"))
	})

	return srv
}

func registerRoutes(srv *http.Server, svc *service.RecurringOrderService) {
	r := srv.Route("/api/v1")

	r.GET("/orders/{id}/recurrence", func(ctx http.Context) error {
		orderID, err := pathOrderID(ctx)
		if err != nil {
			return err
		}
		reply, err := svc.GetRecurringOrder(ctx, orderID)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.PUT("/orders/{id}/recurrence", func(ctx http.Context) error {
		orderID, err := pathOrderID(ctx)
		if err != nil {
			return err
		}
		var req service.MakeRecurringRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		req.OrderID = orderID
		reply, err := svc.MakeOrderRecurring(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/orders/{id}/recurrence/pause", func(ctx http.Context) error {
		return lifecycleRoute(ctx, svc.PauseRecurrence)
	})

	r.POST("/orders/{id}/recurrence/resume", func(ctx http.Context) error {
		return lifecycleRoute(ctx, svc.ResumeRecurrence)
	})

	r.POST("/orders/{id}/recurrence/cancel", func(ctx http.Context) error {
		return lifecycleRoute(ctx, svc.CancelRecurrence)
	})

	r.POST("/orders/{id}/recurrence/reset-errors", func(ctx http.Context) error {
		return lifecycleRoute(ctx, svc.ResetRecurrenceErrors)
	})

	r.POST("/orders/{id}/recurrence/process", func(ctx http.Context) error {
		orderID, err := pathOrderID(ctx)
		if err != nil {
			return err
		}
		reply, err := svc.ProcessOrderRecurrence(ctx, orderID)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/orders/{id}/complete", func(ctx http.Context) error {
		orderID, err := pathOrderID(ctx)
		if err != nil {
			return err
		}
		reply, err := svc.CompleteOrder(ctx, orderID)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/orders/{id}/recurrence/history", func(ctx http.Context) error {
		orderID, err := pathOrderID(ctx)
		if err != nil {
			return err
		}
		page, _ := strconv.Atoi(ctx.Query().Get("page"))
		pageSize, _ := strconv.Atoi(ctx.Query().Get("page_size"))
		reply, err := svc.ListRecurrenceHistory(ctx, orderID, page, pageSize)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/orders/{id}/recurrence/generated", func(ctx http.Context) error {
		orderID, err := pathOrderID(ctx)
		if err != nil {
			return err
		}
		ids, err := svc.ListGeneratedOrders(ctx, orderID)
		if err != nil {
			return err
		}
		return ctx.Result(200, map[string]interface{}{"order_ids": ids})
	})

	r.GET("/orders/{id}/recurrence/derived", func(ctx http.Context) error {
		orderID, err := pathOrderID(ctx)
		if err != nil {
			return err
		}
		records, err := svc.ListDerivedOrders(ctx, orderID)
		if err != nil {
			return err
		}
		return ctx.Result(200, map[string]interface{}{"items": records})
	})

	r.GET("/recurrences", func(ctx http.Context) error {
		reply, err := svc.ListRecurringOrders(ctx, criteriaFromQuery(ctx))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/recurrences/count", func(ctx http.Context) error {
		total, err := svc.CountRecurringOrders(ctx, criteriaFromQuery(ctx))
		if err != nil {
			return err
		}
		return ctx.Result(200, map[string]interface{}{"total": total})
	})

	r.GET("/recurrences/outstanding", func(ctx http.Context) error {
		reply, err := svc.ListOutstandingRecurrences(ctx)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/recurrences/eligible", func(ctx http.Context) error {
		reply, err := svc.ListEligibleRecurrences(ctx)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/recurrences/process", func(ctx http.Context) error {
		dryRun := ctx.Query().Get("dry_run") == "true"
		reply, err := svc.ProcessEligibleRecurrences(ctx, dryRun)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/recurrences/mark-imminent", func(ctx http.Context) error {
		reply, err := svc.MarkImminentOrders(ctx)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
}

func criteriaFromQuery(ctx http.Context) *service.ListRecurrencesRequest {
	q := ctx.Query()
	req := &service.ListRecurrencesRequest{}
	if statuses := q["status"]; len(statuses) > 0 {
		req.Statuses = statuses
	}
	if reasons := q["error_reason"]; len(reasons) > 0 {
		req.ErrorReasons = reasons
	}
	if v := q.Get("has_schedule"); v != "" {
		b := v == "true"
		req.HasSchedule = &b
	}
	if v := q.Get("marked_imminent"); v != "" {
		b := v == "true"
		req.MarkedImminent = &b
	}
	if v := q.Get("originating_order_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			req.OriginatingOrderID = id
		}
	}
	if v := q.Get("parent_order_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			req.ParentOrderID = id
		}
	}
	return req
}

func lifecycleRoute(ctx http.Context, fn func(c context.Context, req *service.LifecycleRequest) (*service.OperationReply, error)) error {
	orderID, err := pathOrderID(ctx)
	if err != nil {
		return err
	}
	req := &service.LifecycleRequest{}
	// 请求体可选，只携带操作人
	_ = ctx.Bind(req)
	req.OrderID = orderID
	reply, err := fn(ctx, req)
	if err != nil {
		return err
	}
	return ctx.Result(200, reply)
}

func pathOrderID(ctx http.Context) (uint64, error) {
	raw := ctx.Vars().Get("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, kerrors.BadRequest("INVALID_ORDER_ID", "order id must be a positive integer")
	}
	return id, nil
}

func customErrorEncoder(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	se := kerrors.FromError(err)
	status := stdhttp.StatusInternalServerError
	response := map[string]interface{}{
		"code":    status,
		"message": "internal server error",
	}

	if se != nil {
		status = mapErrorStatus(int(se.Code))
		response["code"] = se.Code
		response["reason"] = se.Reason
		response["message"] = se.Message
		if len(se.Metadata) > 0 {
			response["metadata"] = se.Metadata
		}
	} else if err != nil {
		response["message"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func mapErrorStatus(code int) int {
	if code >= 100 && code < 600 {
		return code
	}
	if code >= 140000 && code < 150000 {
		return stdhttp.StatusBadRequest
	}
	return stdhttp.StatusInternalServerError
}
