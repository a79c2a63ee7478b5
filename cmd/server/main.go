package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loyaltysystem/internal/config"
	"loyaltysystem/internal/handler"
	"loyaltysystem/internal/infrastructure/cache"
	"loyaltysystem/internal/infrastructure/database"
	"loyaltysystem/internal/infrastructure/mq"
	"loyaltysystem/internal/job"
	"loyaltysystem/pkg/idgen"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig("config/config.yaml")

	// 初始化ID生成器
	idgen.Init(1)

	// 初始化基础设施
	db := database.InitMySQL(&cfg.MySQL)
	rdb := cache.InitRedis(&cfg.Redis)
	mq.InitKafka(&cfg.Kafka)
	defer mq.CloseKafka()

	// 后台任务：出站消息投递 + 过期积分券清理
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outboxSender := job.NewOutboxSender(db, cfg)
	go outboxSender.Start(ctx)

	voucherSweeper := job.NewVoucherSweeper(db)
	go voucherSweeper.Start(ctx)

	// 路由
	h := handler.NewHandler(db, rdb, cfg)
	router := handler.SetupRouter(h, cfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("服务启动: port=%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 优雅关停
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("收到退出信号，开始优雅关停...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("服务关停失败: %v", err)
	}

	log.Println("服务已退出")
}
