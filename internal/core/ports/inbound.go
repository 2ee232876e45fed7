package ports

import (
	"context"
	"io"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

// ChatService answers a question inside a thread.
type ChatService interface {
	Submit(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
}

// DocumentIngestor is the inbound contract for document upload.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentCatalog lists and removes ingested documents.
type DocumentCatalog interface {
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// DocumentPurger removes a document's chunks from the index.
type DocumentPurger interface {
	Purge(ctx context.Context, documentID string) error
}

// ThreadService is the inbound contract for thread management.
type ThreadService interface {
	Create(ctx context.Context, title string) (*domain.Thread, error)
	List(ctx context.Context, skip, limit int) (*domain.ThreadPage, error)
	Messages(ctx context.Context, threadID string, skip, limit int) (*domain.MessagePage, error)
	Rename(ctx context.Context, threadID, title string) (*domain.Thread, error)
	Delete(ctx context.Context, threadID string) (int, error)
}

// EvidenceSearch exposes corpus retrieval without the chat pipeline.
type EvidenceSearch interface {
	Retrieve(ctx context.Context, query string, k int, filter domain.SearchFilter) domain.EvidenceBundle
	RetrieveWithThreshold(ctx context.Context, query string, minScore float64, maxChunks int) domain.EvidenceBundle
}
