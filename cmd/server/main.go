// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"circuit-nav-go/internal/catalog"
	"circuit-nav-go/internal/config"
	"circuit-nav-go/internal/handler"
	"circuit-nav-go/internal/keyword"
	"circuit-nav-go/internal/middleware"
	"circuit-nav-go/internal/service"
	"circuit-nav-go/internal/session"
	"circuit-nav-go/pkg/llm"
	"circuit-nav-go/pkg/log"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 加载目录数据。没有目录服务无法工作，加载失败直接退出。
	cat, err := catalog.Load(cfg.Data.CSVPath)
	if err != nil {
		log.Fatal("目录数据加载失败", err)
	}
	stats := cat.Stats()
	log.Infow("目录数据加载完成",
		"total", stats.TotalCount,
		"types", len(stats.DiagramTypes),
		"brands", len(stats.Brands),
		"models", len(stats.Models),
		"categories", len(stats.VehicleCategories),
	)

	// 4. 初始化分词与同义词族
	extractor, err := keyword.NewExtractor()
	if err != nil {
		log.Fatal("分词器初始化失败", err)
	}
	families, err := keyword.NewFamilies(cfg.Data.SynonymsPath)
	if err != nil {
		log.Fatal("同义词配置加载失败", err)
	}
	patterns := service.LoadCategoryPatterns(cfg.Data.CategoryPatternPath)

	// 5. 初始化 Service (依赖注入)
	var llmClient llm.Client
	if cfg.LLM.APIKey != "" && cfg.LLM.BaseURL != "" {
		llmClient = llm.NewClient(cfg.LLM)
	} else {
		log.Warnf("LLM 未配置，意图解析与问题文案使用本地规则")
	}

	searchService := service.NewSearchService(cat, extractor, families)
	questionService := service.NewQuestionService(llmClient, patterns)
	intentService := service.NewIntentService(llmClient, extractor)
	sessions := session.New(time.Duration(cfg.Server.SessionTTLMinutes) * time.Minute)
	conversationService := service.NewConversationService(
		searchService,
		questionService,
		intentService,
		sessions,
		cfg.Search.MaxResults,
		cfg.Search.MinOptions,
		cfg.Search.MaxOptions,
	)

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 7. 注册路由
	chatHandler := handler.NewChatHandler(conversationService)
	healthHandler := handler.NewHealthHandler(cat)

	api := r.Group("/api")
	{
		api.POST("/chat", chatHandler.Chat)
		api.GET("/chat/ws", chatHandler.HandleWS)
		api.GET("/health", healthHandler.Health)
	}

	// 8. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
