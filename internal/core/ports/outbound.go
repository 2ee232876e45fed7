package ports

import (
	"context"
	"io"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

// DocumentRepository persists the document catalog.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	FindByFilenames(ctx context.Context, filenames []string) ([]domain.Document, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// JobQueue publishes/consumes background document purge jobs.
type JobQueue interface {
	PublishDocumentPurge(ctx context.Context, documentID string) error
	SubscribeDocumentPurge(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document. Unparseable content
// is reported as domain.ErrIngestionEmpty; storage failures are returned as is.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits text into overlapping retrievable segments.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex embeds, stores and searches chunk text.
type VectorIndex interface {
	Add(ctx context.Context, records []domain.IndexRecord) error
	Query(ctx context.Context, text string, k int, filter domain.SearchFilter) ([]domain.IndexHit, error)
	DeleteByFilter(ctx context.Context, filter domain.SearchFilter) error
}

// WebSearcher returns ranked web results for a query.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) (*domain.WebSearchResponse, error)
}

// ChatModel generates the assistant reply from role-tagged messages.
type ChatModel interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// ConversationStore durably holds threads and their messages.
type ConversationStore interface {
	CreateThread(ctx context.Context, title string) (*domain.Thread, error)
	GetThread(ctx context.Context, id string) (*domain.Thread, error)
	UpdateThreadTitle(ctx context.Context, id, title string) (*domain.Thread, error)
	DeleteThread(ctx context.Context, id string) (int, error)
	ListThreads(ctx context.Context, skip, limit int) ([]domain.Thread, error)
	CountThreads(ctx context.Context) (int, error)
	AppendMessage(ctx context.Context, msg *domain.Message) error
	CountMessages(ctx context.Context, threadID string) (int, error)
	ListMessages(ctx context.Context, threadID string, skip, limit int) ([]domain.Message, error)
	ListRecentMessages(ctx context.Context, threadID string, limit int) ([]domain.Message, error)
	SetMessageCount(ctx context.Context, threadID string, count int) error
	ReconcileMessageCounts(ctx context.Context) (int, error)
}
