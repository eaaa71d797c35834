package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/habibullah-1101/habib-portfolio/internal/config"
	"github.com/habibullah-1101/habib-portfolio/internal/handler"
	"github.com/habibullah-1101/habib-portfolio/internal/ratelimit"
	"github.com/habibullah-1101/habib-portfolio/internal/relay"
	"github.com/habibullah-1101/habib-portfolio/internal/upstream"
	"github.com/habibullah-1101/habib-portfolio/pkg/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	if cfg.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is not configured; /api/chat will reject every request")
	}

	limiter := ratelimit.New(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests, cfg.RateLimit.SweepInterval)
	defer limiter.Close()

	upstreamClient := upstream.NewClient(cfg.OpenAI, cfg.Chat.SystemPrompt)
	streamRelay := relay.New(cfg.Chat.StreamIdleTimeout)
	chatHandler := handler.NewChatHandler(upstreamClient, limiter, streamRelay, cfg.Chat.MaxHistoryMessages)

	router := setupRouter(cfg, chatHandler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("server listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	if err := server.Close(); err != nil {
		logger.Errorf("server close failed: %v", err)
	}
	logger.Info("server stopped")
}

func setupRouter(cfg *config.Config, chatHandler *handler.ChatHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	if len(corsConfig.AllowOrigins) == 1 && corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	api := router.Group("/api")
	{
		api.POST("/chat", chatHandler.Chat)
	}

	return router
}
