package extractor

import (
	"context"
	"fmt"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/core/ports"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/extractor/docx"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/extractor/plaintext"
)

// Router dispatches extraction by the document's detected file type.
type Router struct {
	byType map[domain.FileType]ports.TextExtractor
}

func NewRouter(storage ports.ObjectStorage) *Router {
	text := plaintext.NewExtractor(storage)
	return &Router{byType: map[domain.FileType]ports.TextExtractor{
		domain.FileTypeTXT:  text,
		domain.FileTypeMD:   text,
		domain.FileTypePDF:  pdf.NewExtractor(storage),
		domain.FileTypeDOCX: docx.NewExtractor(storage),
	}}
}

func (r *Router) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	ex, ok := r.byType[doc.FileType]
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("no extractor for file type %q", doc.FileType))
	}
	return ex.Extract(ctx, doc)
}
