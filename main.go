package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crop-advisor-api/internal/config"
	"crop-advisor-api/internal/handlers"
	"crop-advisor-api/internal/pkg/logger"
	"crop-advisor-api/internal/services"
)

func main() {
	cfg := config.LoadConfig()

	log := logger.New(os.Getenv("LOG_LEVEL"), cfg.LogFilePath)

	geminiService, err := services.NewGeminiService(cfg.Gemini, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize Gemini service")
		os.Exit(1)
	}

	ollamaService, err := services.NewOllamaService(cfg.Ollama, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize Ollama service")
		os.Exit(1)
	}

	redisService, err := services.NewRedisService(cfg.Redis, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize Redis service")
		os.Exit(1)
	}
	defer redisService.Close()

	authService, err := services.NewAuthService(redisService, cfg.Auth, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize auth service")
		os.Exit(1)
	}

	alertStore, err := services.NewAlertStore(cfg.AlertLogPath, log)
	if err != nil {
		log.WithError(err).Error("Failed to open alert log")
		os.Exit(1)
	}

	chromaService := services.NewChromaService(cfg.Chroma, log)
	ragService := services.NewRAGService(chromaService, ollamaService, cfg.DocumentsDir, log)
	weatherService := services.NewWeatherService(cfg.Weather, log)

	classifier := services.NewQueryClassifier()
	agentService := services.NewAgentService(geminiService, log)
	riskAnalyzer := services.NewRiskAnalyzer()

	orchestrator := services.NewOrchestrator(
		classifier,
		agentService,
		ragService,
		weatherService,
		riskAnalyzer,
		alertStore,
		redisService,
		geminiService,
		cfg.DefaultLocation,
		cfg.DefaultCrop,
		log,
	)

	httpHandlers := handlers.New(orchestrator, ragService, alertStore, authService, agentService, log)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httpHandlers.Router(),
	}

	go func() {
		log.Info("Server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server failed")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
