package plaintext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/core/ports"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor reads TXT and MD uploads as UTF-8. Markdown is kept verbatim; the
// model reads it fine and headings help chunk boundaries.
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
	return Decode(raw, doc.Filename)
}

// Decode validates raw bytes as UTF-8 text and normalizes line endings.
func Decode(raw []byte, filename string) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrIngestionEmpty, "decode text", fmt.Errorf("%s is not valid UTF-8 text", filename))
	}
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.WrapError(domain.ErrIngestionEmpty, "decode text", errors.New("document has no text"))
	}
	return text, nil
}
