package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xinyuan_tech/recurring-orders-service/internal/conf"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"
)

var (
	flagconf string
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	// 初始化配置
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}

	// 初始化应用
	app, cleanup, err := wireApp(&bc)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// 创建定时任务调度器（支持秒级调度）
	cronScheduler := cron.New(cron.WithSeconds())

	// 1. 循环订单处理 - 每小时整点执行
	_, err = cronScheduler.AddFunc("0 0 * * * *", func() {
		log.Println("[CRON] Starting recurrence processing...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		totalCount, successCount, failedCount, results, err := app.recurringOrderUsecase.ProcessEligibleRecurrences(ctx, false)
		if err != nil {
			log.Printf("[CRON] Error processing recurrences: %v", err)
		} else {
			log.Printf("[CRON] Recurrence processing completed: total=%d, success=%d, failed=%d",
				totalCount, successCount, failedCount)

			// 记录详细结果
			for _, result := range results {
				if result.Success() {
					log.Printf("[CRON] Recurrence success: order=%d, generated=%d",
						result.OrderID, result.GeneratedOrderID)
				} else {
					log.Printf("[CRON] Recurrence not processed: order=%d, outcome=%s, reason=%s",
						result.OrderID, result.Outcome, result.ErrorReason)
				}
			}
		}
		log.Println("[CRON] Finished recurrence processing")
	})
	if err != nil {
		log.Printf("Failed to add recurrence processing job: %v", err)
	}

	// 2. 临近标记 - 每天上午 9 点执行
	_, err = cronScheduler.AddFunc("0 0 9 * * *", func() {
		log.Println("[CRON] Starting imminence marking...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		marked, err := app.recurringOrderUsecase.MarkImminentOrders(ctx)
		if err != nil {
			log.Printf("[CRON] Error marking imminent orders: %v", err)
		} else {
			log.Printf("[CRON] Marked %d recurring orders imminent", marked)
		}
		log.Println("[CRON] Finished imminence marking")
	})
	if err != nil {
		log.Printf("Failed to add imminence marking job: %v", err)
	}

	// 启动定时任务
	cronScheduler.Start()
	log.Println("========================================")
	log.Println("Cron jobs started successfully")
	log.Println("Scheduled jobs:")
	log.Println("  - Recurrence processing: Every hour")
	log.Println("  - Imminence marking:     Every day at 09:00")
	log.Println("========================================")

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gracefully...")

	// 停止定时任务
	ctx := cronScheduler.Stop()
	select {
	case <-ctx.Done():
		log.Println("Cron jobs stopped gracefully")
	case <-time.After(5 * time.Second):
		log.Println("Cron jobs forced to stop after timeout")
	}
}
