package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/core/ports"
)

// IngestDocumentUseCase stores, extracts, chunks and indexes an upload in one
// pass. The catalog row is written last so a failed upload leaves nothing
// listable behind.
type IngestDocumentUseCase struct {
	repo      ports.DocumentRepository
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	chunker   ports.Chunker
	index     ports.VectorIndex
	now       func() time.Time
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	index ports.VectorIndex,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		chunker:   chunker,
		index:     index,
		now:       time.Now,
	}
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Document, error) {
	filename = strings.TrimSpace(filepath.Base(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("filename is required"))
	}
	fileType, err := domain.DetectFileType(mimeType, filename)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	doc := &domain.Document{
		ID:            id,
		Filename:      filename,
		StoragePath:   storageKey(id, fileType),
		FileType:      fileType,
		VectorStoreID: id,
		UploadedAt:    uc.now().UTC(),
	}

	if err := uc.storage.Save(ctx, doc.StoragePath, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	if indexed, err := uc.ingest(ctx, doc); err != nil {
		uc.cleanup(doc, indexed)
		return nil, err
	}

	slog.Info("document_ingested",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"file_type", doc.FileType,
		"chunk_count", doc.ChunkCount,
	)
	return doc, nil
}

// ingest reports whether index writes were attempted so cleanup only purges
// vectors that may exist.
func (uc *IngestDocumentUseCase) ingest(ctx context.Context, doc *domain.Document) (bool, error) {
	text, err := uc.extractText(ctx, doc)
	if err != nil {
		return false, err
	}

	chunks, err := uc.chunk(text)
	if err != nil {
		return false, err
	}

	if err := uc.indexChunks(ctx, doc, chunks); err != nil {
		return true, err
	}
	doc.ChunkCount = len(chunks)

	if err := uc.repo.Create(ctx, doc); err != nil {
		return true, fmt.Errorf("create document metadata: %w", err)
	}
	return true, nil
}

func (uc *IngestDocumentUseCase) extractText(ctx context.Context, doc *domain.Document) (string, error) {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		// Parse failures arrive already kinded; anything else is storage I/O.
		if domain.IsKind(err, domain.ErrIngestionEmpty) || domain.IsKind(err, domain.ErrInvalidInput) {
			return "", err
		}
		return "", fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.WrapError(domain.ErrIngestionEmpty, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *IngestDocumentUseCase) chunk(text string) ([]string, error) {
	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrIngestionNoChunks, "chunk document", errors.New("chunking produced zero chunks"))
	}
	return chunks, nil
}

func (uc *IngestDocumentUseCase) indexChunks(ctx context.Context, doc *domain.Document, chunks []string) error {
	records := make([]domain.IndexRecord, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, domain.IndexRecord{
			ID:   ChunkID(doc.ID, i),
			Text: chunk,
			Metadata: domain.Metadata{
				domain.MetaDocumentID: domain.StringValue(doc.ID),
				domain.MetaChunkIndex: domain.IntValue(i),
				domain.MetaFilename:   domain.StringValue(doc.Filename),
				domain.MetaFileType:   domain.StringValue(string(doc.FileType)),
			},
		})
	}
	if err := uc.index.Add(ctx, records); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}
	return nil
}

// cleanup runs detached from the request context so a cancelled upload still
// releases what it wrote.
func (uc *IngestDocumentUseCase) cleanup(doc *domain.Document, purgeIndex bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if purgeIndex {
		if err := uc.index.DeleteByFilter(ctx, domain.SearchFilter{DocumentID: doc.ID}); err != nil {
			slog.Warn("ingest_cleanup_index_failed", "document_id", doc.ID, "error", err)
		}
	}
	if err := uc.storage.Delete(ctx, doc.StoragePath); err != nil {
		slog.Warn("ingest_cleanup_storage_failed", "document_id", doc.ID, "error", err)
	}
}

// ChunkID is the index id of the i-th chunk of a document.
func ChunkID(documentID string, i int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, i)
}

func storageKey(documentID string, fileType domain.FileType) string {
	return documentID + "." + string(fileType)
}
