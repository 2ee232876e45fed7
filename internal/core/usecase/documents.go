package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/core/ports"
)

// DocumentCatalogUseCase lists and deletes documents. With a queue configured
// the index purge is handed to the worker; without one it runs inline.
type DocumentCatalogUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	index   ports.VectorIndex
	queue   ports.JobQueue
}

func NewDocumentCatalogUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	index ports.VectorIndex,
	queue ports.JobQueue,
) *DocumentCatalogUseCase {
	return &DocumentCatalogUseCase{
		repo:    repo,
		storage: storage,
		index:   index,
		queue:   queue,
	}
}

func (uc *DocumentCatalogUseCase) List(ctx context.Context) ([]domain.Document, error) {
	docs, err := uc.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if docs == nil {
		return []domain.Document{}, nil
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})
	return docs, nil
}

func (uc *DocumentCatalogUseCase) Delete(ctx context.Context, id string) error {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if uc.queue == nil {
		if err := uc.Purge(ctx, doc.ID); err != nil {
			return err
		}
	}

	if err := uc.repo.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	if err := uc.storage.Delete(ctx, doc.StoragePath); err != nil {
		slog.Warn("document_storage_delete_failed", "document_id", doc.ID, "error", err)
	}

	if uc.queue != nil {
		if err := uc.queue.PublishDocumentPurge(ctx, doc.ID); err != nil {
			slog.Warn("document_purge_publish_failed", "document_id", doc.ID, "error", err)
			return uc.Purge(ctx, doc.ID)
		}
	}
	return nil
}

// Purge removes every indexed chunk of the document. It is idempotent, so the
// worker can redeliver purge jobs safely.
func (uc *DocumentCatalogUseCase) Purge(ctx context.Context, documentID string) error {
	if err := uc.index.DeleteByFilter(ctx, domain.SearchFilter{DocumentID: documentID}); err != nil {
		return fmt.Errorf("purge document chunks: %w", err)
	}
	slog.Info("document_chunks_purged", "document_id", documentID)
	return nil
}
