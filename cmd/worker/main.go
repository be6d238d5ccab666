package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/database"
	"github.com/qs3c/ats_resume_server/internal/pkg/ai"
	"github.com/qs3c/ats_resume_server/internal/pkg/pubsub"
	"github.com/qs3c/ats_resume_server/internal/pkg/queue"
	"github.com/qs3c/ats_resume_server/internal/repository"
	"github.com/qs3c/ats_resume_server/internal/worker"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 Queue 和 Pub/Sub
	jobQueue := queue.NewQueue(rdb, cfg.Queue.AIQueue)
	publisher := pubsub.NewPublisher(rdb)

	// 初始化 Repository
	analysisRepo := repository.NewAnalysisRepository(db)
	jobRepo := repository.NewJobRepository(db)

	// AI 服务未配置时使用本地规则生成
	rewriter := ai.NewRewriter(&cfg.AI)
	processor := worker.NewProcessor(jobRepo, analysisRepo, rewriter, publisher, jobQueue).
		WithRetry(3, cfg.AI.Timeout*2)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	log.Printf("Worker started, queue: %s, max workers: %d", cfg.Queue.AIQueue, cfg.Queue.MaxWorkers)
	worker.Run(ctx, jobQueue, processor, cfg.Queue.MaxWorkers)
	log.Println("Worker shutdown complete")
}
