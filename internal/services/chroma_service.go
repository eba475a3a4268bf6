package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"crop-advisor-api/internal/config"
	"crop-advisor-api/internal/models"
	"crop-advisor-api/internal/pkg/logger"
)

// VectorStore is the nearest-neighbor index the knowledge base delegates to.
type VectorStore interface {
	AddDocuments(ctx context.Context, docs []VectorDocument) error
	Query(ctx context.Context, embedding []float64, maxResults int) ([]VectorMatch, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}

type VectorDocument struct {
	ID        string
	Content   string
	Embedding []float64
	Metadata  map[string]interface{}
}

type VectorMatch struct {
	Content  string
	Source   string
	Distance float64
}

// ChromaService talks to a ChromaDB server over its REST API. Transient
// failures (5xx, transport errors) are retried with exponential backoff.
type ChromaService struct {
	httpClient *http.Client
	config     config.ChromaConfig
	logger     *logger.Logger

	mu           sync.Mutex
	collectionID string
}

func NewChromaService(config config.ChromaConfig, log *logger.Logger) *ChromaService {
	service := &ChromaService{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		logger:     log,
	}

	log.Info("Chroma service initialized",
		"url", config.URL,
		"collection", config.Collection)

	return service
}

type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ensureCollection resolves the collection id once and caches it.
func (service *ChromaService) ensureCollection(ctx context.Context) (string, error) {
	service.mu.Lock()
	defer service.mu.Unlock()

	if service.collectionID != "" {
		return service.collectionID, nil
	}

	body := map[string]interface{}{
		"name":          service.config.Collection,
		"get_or_create": true,
		"metadata":      map[string]interface{}{"description": "Agricultural knowledge base for crop advisory"},
	}

	raw, err := service.doRequest(ctx, http.MethodPost, "/api/v1/collections", body)
	if err != nil {
		return "", err
	}

	var collection chromaCollection
	if err := json.Unmarshal(raw, &collection); err != nil {
		return "", fmt.Errorf("failed to decode collection response: %w", err)
	}

	service.collectionID = collection.ID
	return collection.ID, nil
}

func (service *ChromaService) AddDocuments(ctx context.Context, docs []VectorDocument) error {
	startTime := time.Now()

	collectionID, err := service.ensureCollection(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, len(docs))
	contents := make([]string, len(docs))
	embeddings := make([][]float64, len(docs))
	metadatas := make([]map[string]interface{}, len(docs))

	for i, doc := range docs {
		ids[i] = doc.ID
		contents[i] = doc.Content
		embeddings[i] = doc.Embedding
		metadatas[i] = doc.Metadata
	}

	body := map[string]interface{}{
		"ids":        ids,
		"documents":  contents,
		"embeddings": embeddings,
		"metadatas":  metadatas,
	}

	_, err = service.doRequest(ctx, http.MethodPost, "/api/v1/collections/"+collectionID+"/add", body)

	service.logger.LogService("chromadb", "add_documents", time.Since(startTime), map[string]interface{}{
		"document_count": len(docs),
	}, err)

	return err
}

type chromaQueryResponse struct {
	IDs       [][]string                 `json:"ids"`
	Documents [][]string                 `json:"documents"`
	Metadatas [][]map[string]interface{} `json:"metadatas"`
	Distances [][]float64                `json:"distances"`
}

func (service *ChromaService) Query(ctx context.Context, embedding []float64, maxResults int) ([]VectorMatch, error) {
	startTime := time.Now()

	collectionID, err := service.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"query_embeddings": [][]float64{embedding},
		"n_results":        maxResults,
		"include":          []string{"documents", "metadatas", "distances"},
	}

	raw, err := service.doRequest(ctx, http.MethodPost, "/api/v1/collections/"+collectionID+"/query", body)
	if err != nil {
		return nil, err
	}

	var parsed chromaQueryResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}

	var matches []VectorMatch
	if len(parsed.Documents) > 0 {
		for i, content := range parsed.Documents[0] {
			match := VectorMatch{Content: content, Distance: 1.0}

			if len(parsed.Distances) > 0 && i < len(parsed.Distances[0]) {
				match.Distance = parsed.Distances[0][i]
			}
			if len(parsed.Metadatas) > 0 && i < len(parsed.Metadatas[0]) {
				if source, ok := parsed.Metadatas[0][i]["source"].(string); ok {
					match.Source = source
				}
			}

			matches = append(matches, match)
		}
	}

	service.logger.LogService("chromadb", "query", time.Since(startTime), map[string]interface{}{
		"matches":     len(matches),
		"max_results": maxResults,
	}, nil)

	return matches, nil
}

func (service *ChromaService) Count(ctx context.Context) (int, error) {
	collectionID, err := service.ensureCollection(ctx)
	if err != nil {
		return 0, err
	}

	raw, err := service.doRequest(ctx, http.MethodGet, "/api/v1/collections/"+collectionID+"/count", nil)
	if err != nil {
		return 0, err
	}

	var count int
	if err := json.Unmarshal(raw, &count); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}

	return count, nil
}

func (service *ChromaService) Clear(ctx context.Context) error {
	service.mu.Lock()
	service.collectionID = ""
	service.mu.Unlock()

	_, err := service.doRequest(ctx, http.MethodDelete, "/api/v1/collections/"+service.config.Collection, nil)
	if err != nil {
		return err
	}

	// recreate empty so later lookups do not fail
	_, err = service.ensureCollection(ctx)
	return err
}

func (service *ChromaService) HealthCheck(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := service.doRequest(healthCtx, http.MethodGet, "/api/v1/heartbeat", nil)
	return err
}

// doRequest performs one REST call, retrying transport errors and 5xx
// responses. 4xx responses are permanent.
func (service *ChromaService) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	operation := func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			encoded, err := json.Marshal(body)
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			reader = bytes.NewReader(encoded)
		}

		req, err := http.NewRequestWithContext(ctx, method, service.config.URL+path, reader)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := service.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("chromadb returned %d: %s", resp.StatusCode, string(raw))
		}
		if resp.StatusCode >= 400 {
			return nil, backoff.Permanent(fmt.Errorf("chromadb returned %d: %s", resp.StatusCode, string(raw)))
		}

		return raw, nil
	}

	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(service.config.MaxRetries)))
	if err != nil {
		return nil, models.WrapExternalError("CHROMADB", err)
	}

	return raw, nil
}
