package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"crop-advisor-api/internal/config"
	"crop-advisor-api/internal/models"
	"crop-advisor-api/internal/pkg/logger"
)

// EmbeddingService turns text into vectors for the knowledge-base index.
type EmbeddingService interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
	BatchGenerateEmbeddings(ctx context.Context, texts []string) ([][]float64, error)
	HealthCheck(ctx context.Context) error
}

type OllamaService struct {
	client *api.Client
	config config.OllamaConfig
	logger *logger.Logger
}

func NewOllamaService(config config.OllamaConfig, log *logger.Logger) (*OllamaService, error) {
	baseURL, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	client := api.NewClient(baseURL, &http.Client{Timeout: config.Timeout})

	service := &OllamaService{
		client: client,
		config: config,
		logger: log,
	}

	log.Info("Ollama service initialized",
		"url", config.URL,
		"embedding_model", config.EmbeddingModel)

	return service, nil
}

func (service *OllamaService) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	startTime := time.Now()

	embedCtx, cancel := context.WithTimeout(ctx, service.config.Timeout)
	defer cancel()

	resp, err := service.client.Embeddings(embedCtx, &api.EmbeddingRequest{
		Model:  service.config.EmbeddingModel,
		Prompt: text,
	})
	if err != nil {
		service.logger.LogService("ollama", "generate_embedding", time.Since(startTime), map[string]interface{}{
			"text_length": len(text),
		}, err)
		return nil, models.WrapExternalError("OLLAMA", err)
	}

	return resp.Embedding, nil
}

func (service *OllamaService) BatchGenerateEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	startTime := time.Now()

	embeddings := make([][]float64, 0, len(texts))
	for _, text := range texts {
		embedding, err := service.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, embedding)
	}

	service.logger.LogService("ollama", "batch_generate_embeddings", time.Since(startTime), map[string]interface{}{
		"batch_size": len(texts),
	}, nil)

	return embeddings, nil
}

func (service *OllamaService) HealthCheck(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := service.client.Heartbeat(healthCtx); err != nil {
		return fmt.Errorf("ollama heartbeat failed: %w", err)
	}
	return nil
}
