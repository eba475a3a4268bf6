package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"crop-advisor-api/internal/pkg/logger"
)

const (
	// sentinel context blocks returned when no knowledge is available;
	// retrieval never raises toward the coordinator
	ContextNotInitialized = "Knowledge base not yet initialized. Using general AI knowledge."
	ContextNoMatches      = "No specific agricultural knowledge found for this query. Relying on general knowledge."
	ContextLookupFailed   = "Error retrieving agricultural knowledge. Using general knowledge base."

	maxChunkChars = 500

	chunkWords   = 500
	chunkOverlap = 50
)

type KnowledgeBaseStatus struct {
	Status         string `json:"status"`
	DocumentChunks int    `json:"document_chunks"`
	RAGEnabled     bool   `json:"rag_enabled"`
}

// RAGService manages the agricultural knowledge base: document ingestion,
// lazy initialization, and formatted context retrieval for agent prompts.
type RAGService struct {
	vectorStore  VectorStore
	embeddings   EmbeddingService
	documentsDir string
	logger       *logger.Logger

	mu          sync.Mutex
	initialized bool
}

func NewRAGService(vectorStore VectorStore, embeddings EmbeddingService, documentsDir string, log *logger.Logger) *RAGService {
	return &RAGService{
		vectorStore:  vectorStore,
		embeddings:   embeddings,
		documentsDir: documentsDir,
		logger:       log,
	}
}

// Initialize ingests every supported document under the documents directory
// into the vector store. Calling it again on an initialized knowledge base
// is a no-op.
func (service *RAGService) Initialize(ctx context.Context) (int, error) {
	service.mu.Lock()
	defer service.mu.Unlock()

	if service.initialized {
		service.logger.Info("Knowledge base already initialized")
		return 0, nil
	}

	startTime := time.Now()

	docs, err := service.processDocuments()
	if err != nil {
		return 0, err
	}

	if len(docs) == 0 {
		return 0, fmt.Errorf("no documents found under %s", service.documentsDir)
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	embeddings, err := service.embeddings.BatchGenerateEmbeddings(ctx, texts)
	if err != nil {
		return 0, err
	}

	for i := range docs {
		docs[i].Embedding = embeddings[i]
	}

	if err := service.vectorStore.AddDocuments(ctx, docs); err != nil {
		return 0, err
	}

	service.initialized = true

	service.logger.LogService("rag", "initialize", time.Since(startTime), map[string]interface{}{
		"document_chunks": len(docs),
	}, nil)

	return len(docs), nil
}

// Context returns a pre-formatted context block for a query, ready to
// splice into a prompt. It degrades to fixed sentinel text instead of
// failing.
func (service *RAGService) Context(ctx context.Context, query string, maxResults int) string {
	if !service.isInitialized() {
		if _, err := service.Initialize(ctx); err != nil {
			service.logger.WithError(err).Warn("Lazy knowledge base initialization failed")
			return ContextNotInitialized
		}
	}

	queryEmbedding, err := service.embeddings.GenerateEmbedding(ctx, query)
	if err != nil {
		service.logger.WithError(err).Error("Failed to embed query for retrieval")
		return ContextLookupFailed
	}

	matches, err := service.vectorStore.Query(ctx, queryEmbedding, maxResults)
	if err != nil {
		service.logger.WithError(err).Error("Vector search failed")
		return ContextLookupFailed
	}

	if len(matches) == 0 {
		return ContextNoMatches
	}

	contextParts := make([]string, 0, len(matches))
	for _, match := range matches {
		content := match.Content
		if len(content) > maxChunkChars {
			content = content[:maxChunkChars] + "..."
		}

		relevance := clamp01(1 - match.Distance)
		contextParts = append(contextParts, fmt.Sprintf("From %s (relevance: %.2f): %s", match.Source, relevance, content))
	}

	service.logger.Info("Retrieved knowledge base context",
		"chunks", len(matches),
		"query_length", len(query))

	return strings.Join(contextParts, "\n\n")
}

func (service *RAGService) Status(ctx context.Context) KnowledgeBaseStatus {
	status := KnowledgeBaseStatus{Status: "not_initialized"}

	if !service.isInitialized() {
		return status
	}

	count, err := service.vectorStore.Count(ctx)
	if err != nil {
		service.logger.WithError(err).Warn("Failed to count knowledge base chunks")
		return KnowledgeBaseStatus{Status: "error"}
	}

	return KnowledgeBaseStatus{
		Status:         "initialized",
		DocumentChunks: count,
		RAGEnabled:     true,
	}
}

func (service *RAGService) Clear(ctx context.Context) error {
	service.mu.Lock()
	defer service.mu.Unlock()

	if err := service.vectorStore.Clear(ctx); err != nil {
		return err
	}

	service.initialized = false
	service.logger.Info("Knowledge base cleared")
	return nil
}

func (service *RAGService) isInitialized() bool {
	service.mu.Lock()
	defer service.mu.Unlock()
	return service.initialized
}

// processDocuments loads and chunks every .txt/.md file in the documents
// directory.
func (service *RAGService) processDocuments() ([]VectorDocument, error) {
	entries, err := os.ReadDir(service.documentsDir)
	if err != nil {
		return nil, fmt.Errorf("documents directory unavailable: %w", err)
	}

	var docs []VectorDocument

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(service.documentsDir, entry.Name()))
		if err != nil {
			service.logger.WithError(err).Error("Failed to read document", "file", entry.Name())
			continue
		}

		content := strings.TrimSpace(string(raw))
		if content == "" {
			continue
		}

		for chunkNum, chunk := range chunkText(content, chunkWords, chunkOverlap) {
			docs = append(docs, VectorDocument{
				ID:      fmt.Sprintf("%s_chunk%d", entry.Name(), chunkNum),
				Content: chunk,
				Metadata: map[string]interface{}{
					"source": entry.Name(),
					"chunk":  chunkNum + 1,
					"type":   "agricultural_knowledge",
				},
			})
		}
	}

	service.logger.Info("Processed knowledge base documents", "chunks", len(docs))

	return docs, nil
}

// chunkText splits text into overlapping word-based chunks.
func chunkText(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	step := size - overlap

	for i := 0; i < len(words); i += step {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}

	return chunks
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
