package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	pdfreader "github.com/ledongthuc/pdf"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/core/ports"
)

// Extractor pulls the text layer out of PDF uploads. Scanned PDFs without a
// text layer come back empty and are rejected by the ingest pipeline.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}
	return Text(raw)
}

// Text returns the concatenated page text of a PDF. The parser panics on some
// malformed inputs, so panics are turned into ingestion errors.
func Text(raw []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.WrapError(domain.ErrIngestionEmpty, "parse pdf", fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	if len(raw) == 0 {
		return "", domain.WrapError(domain.ErrIngestionEmpty, "parse pdf", errors.New("empty file"))
	}
	r, err := pdfreader.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", domain.WrapError(domain.ErrIngestionEmpty, "parse pdf", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", domain.WrapError(domain.ErrIngestionEmpty, "parse pdf", err)
	}
	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", domain.WrapError(domain.ErrIngestionEmpty, "read pdf text", err)
	}
	out := strings.TrimSpace(buf.String())
	if out == "" {
		return "", domain.WrapError(domain.ErrIngestionEmpty, "parse pdf", errors.New("pdf has no text layer"))
	}
	return out, nil
}
